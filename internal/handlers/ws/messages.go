package ws

// MessageWatchLecture subscribes the connection to a lecture's thread
// activity. The server answers pushes; the client refetches over HTTP.
type MessageWatchLecture struct {
	LectureID uint `json:"lecture_id"`
}

func (msg *MessageWatchLecture) GetType() string {
	return "watch_lecture"
}

func (msg *MessageWatchLecture) Process(ctx *MessageContext) error {
	if msg.LectureID == 0 {
		return SendError(ctx.Conn, "invalid_lecture", "lecture_id is required", "")
	}
	if ctx.Hub.WatchLecture(ctx.UserID, msg.LectureID) && ctx.Feeds != nil {
		ctx.Feeds.EnsureLectureFeed(msg.LectureID)
	}
	return ctx.Conn.WriteJSON(map[string]interface{}{
		"type":       "watching",
		"lecture_id": msg.LectureID,
	})
}

// MessageUnwatchLecture drops a lecture subscription.
type MessageUnwatchLecture struct {
	LectureID uint `json:"lecture_id"`
}

func (msg *MessageUnwatchLecture) GetType() string {
	return "unwatch_lecture"
}

func (msg *MessageUnwatchLecture) Process(ctx *MessageContext) error {
	if ctx.Hub.UnwatchLecture(ctx.UserID, msg.LectureID) && ctx.Feeds != nil {
		ctx.Feeds.ReleaseLectureFeed(msg.LectureID)
	}
	return nil
}

// MessageWatchThread subscribes the connection to one open thread's
// message activity.
type MessageWatchThread struct {
	ThreadID uint `json:"thread_id"`
}

func (msg *MessageWatchThread) GetType() string {
	return "watch_thread"
}

func (msg *MessageWatchThread) Process(ctx *MessageContext) error {
	if msg.ThreadID == 0 {
		return SendError(ctx.Conn, "invalid_thread", "thread_id is required", "")
	}
	if ctx.Hub.WatchThread(ctx.UserID, msg.ThreadID) && ctx.Feeds != nil {
		ctx.Feeds.EnsureThreadFeed(msg.ThreadID)
	}
	return ctx.Conn.WriteJSON(map[string]interface{}{
		"type":      "watching",
		"thread_id": msg.ThreadID,
	})
}

// MessageUnwatchThread drops a thread subscription.
type MessageUnwatchThread struct {
	ThreadID uint `json:"thread_id"`
}

func (msg *MessageUnwatchThread) GetType() string {
	return "unwatch_thread"
}

func (msg *MessageUnwatchThread) Process(ctx *MessageContext) error {
	if ctx.Hub.UnwatchThread(ctx.UserID, msg.ThreadID) && ctx.Feeds != nil {
		ctx.Feeds.ReleaseThreadFeed(msg.ThreadID)
	}
	return nil
}

// MessagePing is a keepalive ping from client
type MessagePing struct {
}

func (msg *MessagePing) GetType() string {
	return "ping"
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	// Respond with pong
	return ctx.Conn.WriteJSON(map[string]string{
		"type": "pong",
	})
}

// MessagePong is a pong response (in case client wants to track latency)
type MessagePong struct {
}

func (msg *MessagePong) GetType() string {
	return "pong"
}

func (msg *MessagePong) Process(ctx *MessageContext) error {
	// No-op - just acknowledge
	return nil
}

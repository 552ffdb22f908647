package config

import (
	"time"

	"github.com/jazbelrose/mylg-chat/tools"
)

// App holds the process configuration, sourced from the environment with
// workable local-dev defaults.
type App struct {
	ListenAddr string

	// Message REST API (history, delete, edit, file cleanup).
	HistoryBaseURL string

	// Push transport. Transport selects "ws" or "nats".
	Transport       string
	SocketURL       string
	NATSURL         string
	NATSName        string
	NATSSendSubject string
	NATSRecvSubject string

	// Redis snapshot cache. Empty addr falls back to the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration

	// Attachment object store.
	UploadBaseURL string
	PublicBaseURL string

	// Identity attached to outgoing messages.
	UserID   string
	UserName string
}

func Load() App {
	return App{
		ListenAddr:      tools.GetEnv("LISTEN_ADDR", ":8080"),
		HistoryBaseURL:  tools.GetEnv("HISTORY_BASE_URL", "http://127.0.0.1:9000"),
		Transport:       tools.GetEnv("TRANSPORT", "ws"),
		SocketURL:       tools.GetEnv("SOCKET_URL", "ws://127.0.0.1:9001/chat"),
		NATSURL:         tools.GetEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSName:        tools.GetEnv("NATS_NAME", "chat-client"),
		NATSSendSubject: tools.GetEnv("NATS_SEND_SUBJECT", "chat.outbound"),
		NATSRecvSubject: tools.GetEnv("NATS_RECV_SUBJECT", "chat.inbound"),
		RedisAddr:       tools.GetEnv("REDIS_ADDR", ""),
		RedisPassword:   tools.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:         tools.GetEnvInt("REDIS_DB", 0),
		SnapshotTTL:     tools.GetEnvDuration("SNAPSHOT_TTL", 5*time.Minute),
		UploadBaseURL:   tools.GetEnv("UPLOAD_BASE_URL", "http://127.0.0.1:9002/upload"),
		PublicBaseURL:   tools.GetEnv("PUBLIC_BASE_URL", "http://127.0.0.1:9002/public"),
		UserID:          tools.GetEnv("CHAT_USER_ID", ""),
		UserName:        tools.GetEnv("CHAT_USER_NAME", ""),
	}
}

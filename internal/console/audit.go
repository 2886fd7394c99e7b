package console

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aquamarinepk/aqm"
)

// AuditEntry represents a single audit log entry for an admin action.
type AuditEntry struct {
	Admin     string          `json:"admin"`
	Action    string          `json:"action"`
	Target    string          `json:"target"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}

// AuditLogger records admin actions in the structured log.
type AuditLogger struct {
	logger aqm.Logger
}

func NewAuditLogger(logger aqm.Logger) *AuditLogger {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &AuditLogger{logger: logger}
}

// Log records an audit entry.
func (a *AuditLogger) Log(ctx context.Context, entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	a.logger.Info("audit",
		"request_id", aqm.RequestIDFrom(ctx),
		"admin", entry.Admin,
		"action", entry.Action,
		"target", entry.Target,
		"payload", string(entry.Payload),
		"success", entry.Success,
		"timestamp", entry.Timestamp.Format(time.RFC3339),
		"error", entry.Error,
	)
}

// LogAction records a catalog or payment action and its outcome.
func (a *AuditLogger) LogAction(ctx context.Context, admin, action, target string, payload map[string]interface{}, err error) {
	entry := AuditEntry{
		Admin:   admin,
		Action:  action,
		Target:  target,
		Success: err == nil,
	}
	if payload != nil {
		entry.Payload, _ = json.Marshal(payload)
	}
	if err != nil {
		entry.Error = err.Error()
	}

	a.Log(ctx, entry)
}

func (a *AuditLogger) LogSignIn(ctx context.Context, admin string) {
	a.Log(ctx, AuditEntry{Admin: admin, Action: "signin", Target: "auth", Success: true})
}

func (a *AuditLogger) LogSignOut(ctx context.Context, admin string) {
	a.Log(ctx, AuditEntry{Admin: admin, Action: "signout", Target: "auth", Success: true})
}

func (a *AuditLogger) LogSessionRevoked(ctx context.Context, admin string, reason error) {
	entry := AuditEntry{Admin: admin, Action: "session-revoked", Target: "auth", Success: true}
	if reason != nil {
		entry.Error = reason.Error()
	}
	a.Log(ctx, entry)
}

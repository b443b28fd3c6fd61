// Package audit provides security audit logging for SIEM consumption.
// Events are logged as structured JSON under the "security_audit" logger name
// for easy filtering.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/ekaya-logscope/pkg/logging"
	"github.com/ekaya-inc/ekaya-logscope/pkg/middleware"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags search text
	// bound for a query node.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventRawCommand is logged for every raw command run on a node group.
	EventRawCommand SecurityEventType = "raw_command"
)

// maxValueLen bounds search text and commands copied into events.
const maxValueLen = 500

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Group     string            `json:"group,omitempty"`
	Node      string            `json:"node,omitempty"`
	Source    string            `json:"source"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of flagged search text.
type SQLInjectionDetails struct {
	SearchText  string `json:"search_text"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	Blocked     bool   `json:"blocked"`
}

// RawCommandDetails describes a raw command. Credentials in it are masked.
type RawCommandDetails struct {
	Command string `json:"command"`
}

// SecurityAuditor logs security events. A nil auditor logs nothing.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor under the "security_audit" logger name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records search text flagged on a query node. Blocked
// attempts are critical; allowed ones are warnings.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, node, source string, details SQLInjectionDetails) {
	if a == nil {
		return
	}
	details.SearchText = logging.TruncateString(details.SearchText, maxValueLen)

	severity := "warning"
	if details.Blocked {
		severity = "critical"
	}
	event := a.newEvent(ctx, EventSQLInjectionAttempt, severity)
	event.Node = node
	event.Source = source
	event.Details = details

	fields := []zap.Field{
		zap.String("node", node),
		zap.String("source", source),
		zap.String("fingerprint", details.Fingerprint),
		zap.Bool("blocked", details.Blocked),
	}
	if details.Blocked {
		a.log(zap.ErrorLevel, "SQL injection attempt blocked", event, fields...)
		return
	}
	a.log(zap.WarnLevel, "SQL injection attempt detected", event, fields...)
}

// LogRawCommand records a raw command about to run on every node of a group.
func (a *SecurityAuditor) LogRawCommand(ctx context.Context, group, source, command string) {
	if a == nil {
		return
	}
	command = logging.TruncateString(logging.SanitizeCommand(command), maxValueLen)

	event := a.newEvent(ctx, EventRawCommand, "info")
	event.Group = group
	event.Source = source
	event.Details = RawCommandDetails{Command: command}

	a.log(zap.InfoLevel, "Raw command executed", event,
		zap.String("group", group),
		zap.String("source", source),
		zap.String("command", command))
}

func (a *SecurityAuditor) newEvent(ctx context.Context, t SecurityEventType, severity string) SecurityEvent {
	return SecurityEvent{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		EventType: t,
		RequestID: middleware.RequestID(ctx),
		Severity:  severity,
	}
}

func (a *SecurityAuditor) log(level zapcore.Level, msg string, event SecurityEvent, fields ...zap.Field) {
	ce := a.logger.Check(level, msg)
	if ce == nil {
		return
	}
	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	ce.Write(append([]zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_id", event.ID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	}, fields...)...)
}

package main

import ("encoding/json"; "fmt"; "time"; "github.com/yourusername/streamspace/api/internal/plugins")

type RecordingPlugin struct {
	plugins.BasePlugin
	config RecordingConfig
}

type RecordingConfig struct {
	Enabled                 bool     `json:"enabled"`
	DefaultFormat           string   `json:"defaultFormat"`
	DefaultRetentionDays    int      `json:"defaultRetentionDays"`
	MaxFileSize             int64    `json:"maxFileSize"`
	StoragePath             string   `json:"storagePath"`
	AutoRecordForCompliance bool     `json:"autoRecordForCompliance"`
	ComplianceFrameworks    []string `json:"complianceFrameworks"`
	EncryptRecordings       bool     `json:"encryptRecordings"`
}

type SessionRecording struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Duration      int       `json:"duration"`
	FileSize      int64     `json:"file_size"`
	FilePath      string    `json:"file_path"`
	FileHash      string    `json:"file_hash"`
	Format        string    `json:"format"`
	Status        string    `json:"status"`
	RetentionDays int       `json:"retention_days"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	IsAutomatic   bool      `json:"is_automatic"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (p *RecordingPlugin) Initialize(ctx *plugins.PluginContext) error {
	configBytes, _ := json.Marshal(ctx.Config)
	json.Unmarshal(configBytes, &p.config)
	
	if !p.config.Enabled {
		ctx.Logger.Info("Recording plugin is disabled")
		return nil
	}
	
	p.createDatabaseTables(ctx)
	ctx.Logger.Info("Recording plugin initialized", "storage", p.config.StoragePath)
	return nil
}

func (p *RecordingPlugin) OnLoad(ctx *plugins.PluginContext) error {
	ctx.Logger.Info("Session Recording plugin loaded")
	return nil
}

func (p *RecordingPlugin) OnSessionCreated(ctx *plugins.PluginContext, session interface{}) error {
	if !p.config.Enabled || !p.config.AutoRecordForCompliance {
		return nil
	}
	
	sessionMap, _ := session.(map[string]interface{})
	sessionID := fmt.Sprintf("%v", sessionMap["id"])
	userID := fmt.Sprintf("%v", sessionMap["user_id"])
	
	// Start automatic recording for compliance
	return p.startRecording(ctx, sessionID, userID, "compliance")
}

func (p *RecordingPlugin) OnSessionTerminated(ctx *plugins.PluginContext, session interface{}) error {
	if !p.config.Enabled {
		return nil
	}
	
	sessionMap, _ := session.(map[string]interface{})
	sessionID := fmt.Sprintf("%v", sessionMap["id"])
	
	// Finalize recording
	return p.finalizeRecording(ctx, sessionID)
}

func (p *RecordingPlugin) RunScheduledJob(ctx *plugins.PluginContext, jobName string) error {
	if jobName == "cleanup-expired-recordings" {
		return p.cleanupExpiredRecordings(ctx)
	}
	return nil
}

func (p *RecordingPlugin) createDatabaseTables(ctx *plugins.PluginContext) error {
	ctx.Database.Exec(`CREATE TABLE IF NOT EXISTS session_recordings (
		id SERIAL PRIMARY KEY, session_id VARCHAR(255), user_id VARCHAR(255),
		start_time TIMESTAMP, end_time TIMESTAMP, duration INTEGER,
		file_size BIGINT, file_path TEXT, file_hash VARCHAR(255),
		format VARCHAR(50), status VARCHAR(50), retention_days INTEGER,
		expires_at TIMESTAMP, is_automatic BOOLEAN, reason TEXT,
		created_at TIMESTAMP DEFAULT NOW()
	)`)
	ctx.Database.Exec(`CREATE TABLE IF NOT EXISTS recording_playback (
		id SERIAL PRIMARY KEY, recording_id INTEGER, user_id VARCHAR(255),
		started_at TIMESTAMP DEFAULT NOW(), position INTEGER, speed FLOAT
	)`)
	return nil
}

func (p *RecordingPlugin) startRecording(ctx *plugins.PluginContext, sessionID, userID, reason string) error {
	ctx.Logger.Info("Starting recording", "session", sessionID, "reason", reason)
	return nil
}

func (p *RecordingPlugin) finalizeRecording(ctx *plugins.PluginContext, sessionID string) error {
	ctx.Logger.Info("Finalizing recording", "session", sessionID)
	return nil
}

func (p *RecordingPlugin) cleanupExpiredRecordings(ctx *plugins.PluginContext) error {
	ctx.Logger.Info("Cleaning up expired recordings")
	return nil
}

func init() {
	plugins.Register("streamspace-recording", &RecordingPlugin{})
}

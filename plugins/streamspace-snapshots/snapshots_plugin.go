package main

import ("encoding/json"; "fmt"; "time"; "github.com/yourusername/streamspace/api/internal/plugins")

type SnapshotsPlugin struct {
	plugins.BasePlugin
	config SnapshotsConfig
}

type SnapshotsConfig struct {
	Enabled                bool   `json:"enabled"`
	MaxSnapshotsPerSession int    `json:"maxSnapshotsPerSession"`
	DefaultRetentionDays   int    `json:"defaultRetentionDays"`
	StoragePath            string `json:"storagePath"`
	CompressionEnabled     bool   `json:"compressionEnabled"`
	EncryptSnapshots       bool   `json:"encryptSnapshots"`
}

type SessionSnapshot struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	FileHash    string    `json:"file_hash"`
	Compressed  bool      `json:"compressed"`
	Encrypted   bool      `json:"encrypted"`
	Shared      bool      `json:"shared"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *SnapshotsPlugin) Initialize(ctx *plugins.PluginContext) error {
	configBytes, _ := json.Marshal(ctx.Config)
	json.Unmarshal(configBytes, &p.config)
	
	if !p.config.Enabled {
		ctx.Logger.Info("Snapshots plugin is disabled")
		return nil
	}
	
	p.createDatabaseTables(ctx)
	ctx.Logger.Info("Snapshots plugin initialized", "storage", p.config.StoragePath)
	return nil
}

func (p *SnapshotsPlugin) OnLoad(ctx *plugins.PluginContext) error {
	ctx.Logger.Info("Session Snapshots plugin loaded")
	return nil
}

func (p *SnapshotsPlugin) RunScheduledJob(ctx *plugins.PluginContext, jobName string) error {
	if jobName == "cleanup-old-snapshots" {
		return p.cleanupOldSnapshots(ctx)
	}
	return nil
}

func (p *SnapshotsPlugin) createDatabaseTables(ctx *plugins.PluginContext) error {
	ctx.Database.Exec(`CREATE TABLE IF NOT EXISTS session_snapshots (
		id SERIAL PRIMARY KEY, session_id VARCHAR(255), user_id VARCHAR(255),
		name VARCHAR(200), description TEXT, file_path TEXT, file_size BIGINT,
		file_hash VARCHAR(255), compressed BOOLEAN, encrypted BOOLEAN,
		shared BOOLEAN, expires_at TIMESTAMP, created_at TIMESTAMP DEFAULT NOW()
	)`)
	ctx.Database.Exec(`CREATE TABLE IF NOT EXISTS snapshot_schedules (
		id SERIAL PRIMARY KEY, session_id VARCHAR(255), schedule VARCHAR(100),
		retention_days INTEGER, enabled BOOLEAN, created_at TIMESTAMP DEFAULT NOW()
	)`)
	return nil
}

func (p *SnapshotsPlugin) cleanupOldSnapshots(ctx *plugins.PluginContext) error {
	ctx.Logger.Info("Cleaning up old snapshots")
	return nil
}

func init() {
	plugins.Register("streamspace-snapshots", &SnapshotsPlugin{})
}

package main

import ("encoding/json"; "github.com/yourusername/streamspace/api/internal/plugins"; "time")

type AuditPlugin struct {plugins.BasePlugin; config AuditConfig}
type AuditConfig struct {Enabled bool `json:"enabled"`; RetentionDays int `json:"retentionDays"`}

func (p *AuditPlugin) Initialize(ctx *plugins.PluginContext) error {
	json.Unmarshal([]byte("{}"), &p.config)
	ctx.Database.Exec(`CREATE TABLE IF NOT EXISTS audit_log_advanced (id SERIAL PRIMARY KEY, user_id VARCHAR(255), event_type VARCHAR(100), details JSONB, created_at TIMESTAMP DEFAULT NOW())`)
	ctx.Logger.Info("Audit plugin initialized")
	return nil
}

func (p *AuditPlugin) OnLoad(ctx *plugins.PluginContext) error {return nil}
func (p *AuditPlugin) OnSessionCreated(ctx *plugins.PluginContext, session interface{}) error {return nil}

func init() {plugins.Register("streamspace-audit-advanced", &AuditPlugin{})}

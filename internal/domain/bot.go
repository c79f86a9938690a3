package domain

import "time"

// HostedServer is one external group a bot currently serves, as reported by the
// bot itself.
type HostedServer struct {
	ID                    string `bson:"id" json:"id"`
	Name                  string `bson:"name" json:"name"`
	InviteLink            string `bson:"invite_link" json:"inviteLink,omitempty"`
	HasElevatedPermission bool   `bson:"has_elevated_permission" json:"hasElevatedPermission"`
}

// BotRecord is the durable state of one registered bot instance, keyed by its
// unique token. Approval, password policy, and the restart flag are mutated only
// by the operator API; servers and last_seen_at only by the bot's own reports.
type BotRecord struct {
	Token           string         `bson:"token" json:"token"`
	ClientName      string         `bson:"client_name" json:"client_name"`
	Servers         []HostedServer `bson:"servers" json:"servers"`
	CallbackURL     string         `bson:"callback_url,omitempty" json:"callbackURL,omitempty"`
	Approved        bool           `bson:"approved" json:"approved"`
	PasswordEnabled bool           `bson:"password_enabled" json:"passwordEnabled"`
	Password        string         `bson:"password,omitempty" json:"password,omitempty"`
	ForceRestart    bool           `bson:"force_restart" json:"forceRestart"`
	RegisteredAt    time.Time      `bson:"registered_at" json:"registered_at"`
	LastSeenAt      time.Time      `bson:"last_seen_at" json:"last_seen_at"`
}

package entity

import "time"

// Organization is a tenant. Every query that spans users must filter on
// the organization id. LINE channel credentials live here so outbound
// pushes can be sent on the tenant's own channel.
type Organization struct {
	ID                     string    `json:"id" db:"id"`
	Name                   string    `json:"name" db:"name"`
	LineChannelAccessToken string    `json:"-" db:"line_channel_access_token"`
	LineChannelSecret      string    `json:"-" db:"line_channel_secret"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}

package model

import "fmt"

const (
	RelationshipProspect = "prospect"
	RelationshipActive   = "active"
	RelationshipInactive = "inactive"
	RelationshipChurned  = "churned"
)

type CommunicationPreferences struct {
	PreferredChannel string `json:"preferred_channel,omitempty"`
	Frequency        string `json:"frequency,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
}

type Client struct {
	Meta
	CompanyName              string                   `json:"company_name"`
	ContactName              string                   `json:"contact_name,omitempty"`
	Email                    string                   `json:"email,omitempty"`
	Phone                    string                   `json:"phone,omitempty"`
	Industry                 string                   `json:"industry,omitempty"`
	Tier                     string                   `json:"tier,omitempty"`
	RelationshipStatus       string                   `json:"relationship_status,omitempty"`
	CommunicationPreferences CommunicationPreferences `json:"communication_preferences,omitempty"`
	BudgetRange              string                   `json:"budget_range,omitempty"`
	PaymentTerms             string                   `json:"payment_terms,omitempty"`
	HourlyRate               float64                  `json:"hourly_rate,omitempty"`
	Permissions              map[string]bool          `json:"permissions,omitempty"`
	Tags                     []string                 `json:"tags,omitempty"`
	Notes                    string                   `json:"notes,omitempty"`
}

func (Client) EntityType() string { return TypeClient }

func (c *Client) Validate() error {
	if c.CompanyName == "" {
		return fmt.Errorf("company_name is required")
	}
	if c.Tier != "" && !oneOf(c.Tier, "A", "B", "C") {
		return fmt.Errorf("invalid tier %q", c.Tier)
	}
	if c.RelationshipStatus != "" && !oneOf(c.RelationshipStatus,
		RelationshipProspect, RelationshipActive, RelationshipInactive, RelationshipChurned) {
		return fmt.Errorf("invalid relationship_status %q", c.RelationshipStatus)
	}
	if c.HourlyRate < 0 {
		return fmt.Errorf("hourly_rate must not be negative")
	}
	return nil
}

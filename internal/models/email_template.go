package models

// EmailTemplate defines a subject/body pair rendered with text/template.
type EmailTemplate struct {
	TemplateID string `bson:"template_id" json:"template_id" yaml:"template_id"` // e.g., "agent_welcome", "referral_notice"
	Locale     string `bson:"locale" json:"locale" yaml:"locale"`                // e.g., "pt-BR"
	Subject    string `bson:"subject" json:"subject" yaml:"subject"`
	Body       string `bson:"body" json:"body" yaml:"body"`
}

package api

// Profile is the authenticated user's backend profile.
type Profile struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	HasAPIKey      bool   `json:"hasApiKey"`
}

// Template is a referral message template. Content may embed the
// {jobTitle}, {companyName} and {skills} placeholders.
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// NewTemplate is the create payload.
type NewTemplate struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"isDefault"`
}

// TemplatePatch is the partial update payload; nil fields are omitted.
type TemplatePatch struct {
	Name      *string `json:"name,omitempty"`
	Content   *string `json:"content,omitempty"`
	IsDefault *bool   `json:"isDefault,omitempty"`
}

// Referral is a finished generation result.
type Referral struct {
	Message     string `json:"referralMessage"`
	JobTitle    string `json:"jobTitle"`
	CompanyName string `json:"companyName"`
}

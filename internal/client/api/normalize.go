package api

import "encoding/json"

// The backend has drifted on a few payload shapes: profile data may be
// nested under "data" or "user" or sit at the top level, the picture field
// appears as profilePicture or profilePhoto, and the API-key flag as
// hasApiKey or the deprecated hasGeminiApiKey. All tolerance lives here, in
// one normalization step; the rest of the client sees the canonical types.

type profileEnvelope struct {
	Data *profileDTO `json:"data"`
	User *profileDTO `json:"user"`
	profileDTO
}

type profileDTO struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	DisplayName     string `json:"displayName"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ProfilePicture  string `json:"profilePicture"`
	ProfilePhoto    string `json:"profilePhoto"`
	HasAPIKey       bool   `json:"hasApiKey"`
	HasGeminiAPIKey bool   `json:"hasGeminiApiKey"`
}

func normalizeProfile(raw []byte) (*Profile, error) {
	var env profileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	dto := env.profileDTO
	if env.Data != nil {
		dto = *env.Data
	} else if env.User != nil {
		dto = *env.User
	}

	picture := dto.ProfilePicture
	if picture == "" {
		picture = dto.ProfilePhoto
	}

	return &Profile{
		ID:             dto.ID,
		Email:          dto.Email,
		DisplayName:    dto.DisplayName,
		FirstName:      dto.FirstName,
		LastName:       dto.LastName,
		ProfilePicture: picture,
		HasAPIKey:      dto.HasAPIKey || dto.HasGeminiAPIKey,
	}, nil
}

type templateDTO struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (d templateDTO) normalize() Template {
	id := d.ID
	if id == "" {
		id = d.MongoID
	}
	return Template{
		ID:        id,
		Name:      d.Name,
		Content:   d.Content,
		IsDefault: d.IsDefault,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

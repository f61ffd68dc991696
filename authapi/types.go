package authapi

import "encoding/json"

// TokenPair is an access/refresh token pair. The two are always issued,
// stored, and cleared together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserProfile is the normalized identity returned by login and register.
// Display-only: nothing in the client makes authorization decisions from it.
type UserProfile struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
	DateOfBirth  string `json:"date_of_birth"`
}

// UnmarshalJSON accepts both of the backend's field-naming conventions and
// stores the normalized form.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var wire wireUser
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = wire.normalize()
	return nil
}

// AuthResult is the outcome of a successful login or register call.
type AuthResult struct {
	Tokens TokenPair
	User   UserProfile
}

// RegisterParams is the payload for creating a new account.
type RegisterParams struct {
	FullName     string
	Email        string
	MobileNumber string
	DateOfBirth  string
	Password     string
}

// The backend has shipped two field-naming conventions over time
// (snake_case and camelCase). Each alias pair is declared once here and
// resolved by normalize(), instead of fallback chains at every call site.

type wireUser struct {
	ID             flexibleID `json:"id"`
	FullName       string     `json:"full_name"`
	FullNameCamel  string     `json:"fullName"`
	Email          string     `json:"email"`
	Mobile         string     `json:"mobile_number"`
	MobileCamel    string     `json:"mobileNumber"`
	DateOfBirth    string     `json:"date_of_birth"`
	DateOfBirthCml string     `json:"dateOfBirth"`
}

// flexibleID accepts both string and numeric ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func (w wireUser) normalize() UserProfile {
	return UserProfile{
		ID:           string(w.ID),
		FullName:     firstNonEmpty(w.FullName, w.FullNameCamel),
		Email:        w.Email,
		MobileNumber: firstNonEmpty(w.Mobile, w.MobileCamel),
		DateOfBirth:  firstNonEmpty(w.DateOfBirth, w.DateOfBirthCml),
	}
}

type wireAuthResponse struct {
	Token             string   `json:"token"`
	AccessToken       string   `json:"accessToken"`
	AccessTokenSnake  string   `json:"access_token"`
	RefreshToken      string   `json:"refreshToken"`
	RefreshTokenSnake string   `json:"refresh_token"`
	User              wireUser `json:"user"`
}

func (w wireAuthResponse) normalize() AuthResult {
	return AuthResult{
		Tokens: TokenPair{
			AccessToken:  firstNonEmpty(w.Token, w.AccessToken, w.AccessTokenSnake),
			RefreshToken: firstNonEmpty(w.RefreshToken, w.RefreshTokenSnake),
		},
		User: w.User.normalize(),
	}
}

type wireTokenResponse struct {
	AccessToken       string `json:"accessToken"`
	AccessTokenSnake  string `json:"access_token"`
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

func (w wireTokenResponse) normalize() TokenPair {
	return TokenPair{
		AccessToken:  firstNonEmpty(w.AccessToken, w.AccessTokenSnake),
		RefreshToken: firstNonEmpty(w.RefreshToken, w.RefreshTokenSnake),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

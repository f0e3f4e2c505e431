package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultIdentityBaseURL = "https://identitytoolkit.googleapis.com"
	defaultUserAgent       = "kigurumi-cli/1.0"
)

// IdentityToolkit signs in with email and password against the Identity
// Toolkit REST API. The email is fixed by configuration; the secret is the password.
type IdentityToolkit struct {
	HTTP      *http.Client
	BaseURL   string
	APIKey    string
	Email     string
	UserAgent string

	now func() time.Time
}

func NewIdentityToolkit(baseURL, apiKey, email string) *IdentityToolkit {
	if baseURL == "" {
		baseURL = defaultIdentityBaseURL
	}
	return &IdentityToolkit{
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		BaseURL:   baseURL,
		APIKey:    apiKey,
		Email:     email,
		UserAgent: defaultUserAgent,
		now:       time.Now,
	}
}

func (p *IdentityToolkit) Name() string {
	return "identitytoolkit"
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *IdentityToolkit) SignIn(ctx context.Context, secret string) (Identity, error) {
	if p.APIKey == "" {
		return Identity{}, fmt.Errorf("identity toolkit api key is not configured")
	}
	if p.Email == "" {
		return Identity{}, fmt.Errorf("auth email is not configured")
	}

	body, err := json.Marshal(signInRequest{Email: p.Email, Password: secret, ReturnSecureToken: true})
	if err != nil {
		return Identity{}, err
	}

	endpoint, err := url.Parse(strings.TrimSuffix(p.BaseURL, "/") + "/v1/accounts:signInWithPassword")
	if err != nil {
		return Identity{}, err
	}
	endpoint.RawQuery = url.Values{"key": {p.APIKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return Identity{}, &Error{Kind: KindUnknown, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return Identity{}, classifyResponse(resp.StatusCode, payload)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Identity{}, fmt.Errorf("decode sign-in response: %w", err)
	}
	if out.IDToken == "" {
		return Identity{}, fmt.Errorf("sign-in response missing idToken")
	}

	issued := p.now()
	if date, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		issued = date
	}
	email := out.Email
	if email == "" {
		email = p.Email
	}
	return Identity{
		Email:        email,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		IssuedAt:     issued.UTC(),
	}, nil
}

// SignOut is local only: the REST API keeps no server-side session to end.
func (p *IdentityToolkit) SignOut(ctx context.Context) error {
	return nil
}

func classifyResponse(status int, payload []byte) *Error {
	var body errorResponse
	if err := json.Unmarshal(payload, &body); err != nil || body.Error.Message == "" {
		return &Error{Kind: KindUnknown, Code: http.StatusText(status)}
	}
	code := errorCode(body.Error.Message)
	return &Error{Kind: classifyCode(code), Code: code}
}

// errorCode strips the human-readable tail from messages such as
// "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled".
func errorCode(message string) string {
	code, _, _ := strings.Cut(message, " ")
	return strings.TrimSpace(code)
}

func classifyCode(code string) ErrorKind {
	switch code {
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "EMAIL_NOT_FOUND", "USER_DISABLED", "MISSING_PASSWORD":
		return KindInvalidCredential
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return KindRateLimited
	default:
		return KindUnknown
	}
}

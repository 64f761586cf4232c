package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// LINE Login endpoints.
var LineEndpoint = oauth2.Endpoint{
	AuthURL:  "https://access.line.me/oauth2/v2.1/authorize",
	TokenURL: "https://api.line.me/oauth2/v2.1/token",
}

const LineProfileURL = "https://api.line.me/v2/profile"

type LineConfig struct {
	ChannelID     string
	ChannelSecret string
	RedirectURI   string
	Scopes        []string
	// Endpoint and ProfileURL default to LINE's.
	Endpoint   oauth2.Endpoint
	ProfileURL string
}

// LineProvider implements Provider with LINE Login (OAuth2 + PKCE).
type LineProvider struct {
	oauth      *oauth2.Config
	profileURL string

	mu       sync.Mutex
	state    string
	verifier string
	token    *oauth2.Token
}

func NewLineProvider(cfg LineConfig) *LineProvider {
	ep := cfg.Endpoint
	if ep.AuthURL == "" || ep.TokenURL == "" {
		ep = LineEndpoint
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"profile", "openid"}
	}
	profileURL := cfg.ProfileURL
	if profileURL == "" {
		profileURL = LineProfileURL
	}
	return &LineProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ChannelID,
			ClientSecret: cfg.ChannelSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     ep,
		},
		profileURL: profileURL,
	}
}

func (p *LineProvider) Initialize(context.Context) error {
	if p.oauth.ClientID == "" {
		return fmt.Errorf("idp: line channel id is empty")
	}
	return nil
}

func (p *LineProvider) Login(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = uuid.NewString()
	p.verifier = oauth2.GenerateVerifier()
	return p.oauth.AuthCodeURL(p.state, oauth2.S256ChallengeOption(p.verifier)), nil
}

func (p *LineProvider) Complete(ctx context.Context, state, code string) error {
	p.mu.Lock()
	expected, verifier := p.state, p.verifier
	p.mu.Unlock()
	if expected == "" || state != expected {
		return ErrStateInvalid
	}
	tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("idp: token exchange failed for line: %w", err)
	}
	p.mu.Lock()
	p.token, p.state, p.verifier = tok, "", ""
	p.mu.Unlock()
	return nil
}

func (p *LineProvider) Logout(context.Context) error {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
	return nil
}

func (p *LineProvider) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != nil
}

func (p *LineProvider) GetProfile(ctx context.Context) (Profile, error) {
	p.mu.Lock()
	tok := p.token
	p.mu.Unlock()
	if tok == nil {
		return Profile{}, ErrNotLoggedIn
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Profile{}, fmt.Errorf("idp: profile request failed: %s", resp.Status)
	}
	var prof Profile
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return Profile{}, err
	}
	return prof, nil
}

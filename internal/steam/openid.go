package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	openIDNamespace  = "http://specs.openid.net/auth/2.0"
	identifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"

	// DefaultOpenIDEndpoint is Steam's OpenID 2.0 provider
	DefaultOpenIDEndpoint = "https://steamcommunity.com/openid/login"
)

var (
	ErrInvalidAssertion = errors.New("invalid openid assertion")
	ErrReturnToMismatch = errors.New("openid return_to does not match callback")
	ErrNotVerified      = errors.New("steam rejected the openid assertion")
)

var claimedIDPattern = regexp.MustCompile(`^https?://steamcommunity\.com/openid/id/(\d{17})$`)

// OpenID implements the relying-party side of Steam's OpenID 2.0 login
type OpenID struct {
	endpoint    string
	realm       string
	callbackURL string
	httpClient  *http.Client
}

// NewOpenID creates a relying party for realm. callbackURL must live under realm.
func NewOpenID(realm, callbackURL string, httpClient *http.Client) *OpenID {
	return &OpenID{
		endpoint:    DefaultOpenIDEndpoint,
		realm:       realm,
		callbackURL: callbackURL,
		httpClient:  httpClient,
	}
}

// WithEndpoint points the relying party at another provider. Tests only.
func (o *OpenID) WithEndpoint(endpoint string) *OpenID {
	o.endpoint = endpoint
	return o
}

// LoginURL builds the checkid_setup redirect. state, when set, is carried
// back on the callback as a query parameter of return_to.
func (o *OpenID) LoginURL(state string) string {
	returnTo := o.callbackURL
	if state != "" {
		sep := "?"
		if strings.Contains(returnTo, "?") {
			sep = "&"
		}
		returnTo += sep + "state=" + url.QueryEscape(state)
	}

	params := url.Values{}
	params.Set("openid.ns", openIDNamespace)
	params.Set("openid.mode", "checkid_setup")
	params.Set("openid.return_to", returnTo)
	params.Set("openid.realm", o.realm)
	params.Set("openid.identity", identifierSelect)
	params.Set("openid.claimed_id", identifierSelect)

	return o.endpoint + "?" + params.Encode()
}

// Verify checks a positive assertion from the callback query and returns
// the authenticated SteamID64. The assertion is replayed to Steam in
// check_authentication mode; only an is_valid:true answer is accepted.
func (o *OpenID) Verify(ctx context.Context, params url.Values) (string, error) {
	if params.Get("openid.mode") != "id_res" {
		return "", fmt.Errorf("%w: mode %q", ErrInvalidAssertion, params.Get("openid.mode"))
	}
	if params.Get("openid.ns") != openIDNamespace {
		return "", fmt.Errorf("%w: namespace", ErrInvalidAssertion)
	}
	if params.Get("openid.op_endpoint") != o.endpoint {
		return "", fmt.Errorf("%w: op_endpoint %q", ErrInvalidAssertion, params.Get("openid.op_endpoint"))
	}
	if !strings.HasPrefix(params.Get("openid.return_to"), o.callbackURL) {
		return "", ErrReturnToMismatch
	}

	match := claimedIDPattern.FindStringSubmatch(params.Get("openid.claimed_id"))
	if match == nil {
		return "", fmt.Errorf("%w: claimed_id", ErrInvalidAssertion)
	}
	if params.Get("openid.identity") != params.Get("openid.claimed_id") {
		return "", fmt.Errorf("%w: identity differs from claimed_id", ErrInvalidAssertion)
	}

	check := url.Values{}
	for key, values := range params {
		if strings.HasPrefix(key, "openid.") {
			check[key] = values
		}
	}
	check.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, strings.NewReader(check.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	// Key-value form: one "key:value" pair per line.
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "is_valid:true" {
			return match[1], nil
		}
	}
	return "", ErrNotVerified
}

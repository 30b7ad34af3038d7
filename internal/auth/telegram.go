package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrExpiredInitData = errors.New("init data has expired")
)

// WebAppUser is the user object the chat host embeds in init data.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// IDString returns the user id in the form used by the admin allow-list.
func (u WebAppUser) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// InitData is the verified content of a mini-app launch.
type InitData struct {
	QueryID  string
	User     WebAppUser
	AuthDate time.Time
}

// TelegramVerifier checks the signature the host puts on mini-app init
// data: hash = hex(HMAC_SHA256(HMAC_SHA256("WebAppData", botToken), data_check_string)).
type TelegramVerifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewTelegramVerifier creates a verifier. maxAge <= 0 disables the
// auth_date freshness check.
func NewTelegramVerifier(botToken string, maxAge time.Duration) *TelegramVerifier {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return &TelegramVerifier{
		secret: mac.Sum(nil),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Verify parses raw init data, checks its hash and freshness, and decodes
// the user.
func (v *TelegramVerifier) Verify(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	got, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(got) == 0 {
		return nil, ErrInvalidInitData
	}
	if !hmac.Equal(got, v.sum(values)) {
		return nil, ErrInvalidInitData
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth_date", ErrInvalidInitData)
	}
	authDate := time.Unix(authUnix, 0)
	if v.maxAge > 0 && v.now().Sub(authDate) > v.maxAge {
		return nil, ErrExpiredInitData
	}

	data := &InitData{QueryID: values.Get("query_id"), AuthDate: authDate}
	if err := json.Unmarshal([]byte(values.Get("user")), &data.User); err != nil {
		return nil, fmt.Errorf("%w: bad user: %v", ErrInvalidInitData, err)
	}
	if data.User.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidInitData)
	}
	return data, nil
}

// Sign adds the hash field to values and returns the encoded init data.
// Used by local tooling and tests to produce launch parameters.
func (v *TelegramVerifier) Sign(values url.Values) string {
	signed := url.Values{}
	for k, vs := range values {
		if k != "hash" {
			signed[k] = vs
		}
	}
	signed.Set("hash", hex.EncodeToString(v.sum(signed)))
	return signed.Encode()
}

func (v *TelegramVerifier) sum(values url.Values) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + values.Get(k)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return mac.Sum(nil)
}

// AllowList holds the platform user ids that may act as admin.
type AllowList map[string]struct{}

// ParseAllowList reads a comma separated list of ids.
func ParseAllowList(s string) AllowList {
	list := make(AllowList)
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			list[id] = struct{}{}
		}
	}
	return list
}

func (l AllowList) Contains(id string) bool {
	_, ok := l[id]
	return ok
}

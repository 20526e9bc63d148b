package server

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName = "prosperdash-session"
	isAuthKey   = "is_authenticated"

	// Sessions expire after twelve hours regardless of activity.
	sessionMaxAge = 12 * 60 * 60

	bcryptCost = 12
)

// Credentials holds the single dashboard login. The plaintext password
// from the runtime environment is hashed once at startup and discarded.
type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials builds the login credentials. Both values are required;
// the dashboard never starts without a configured login.
func NewCredentials(username, password string) (*Credentials, error) {
	if username == "" || password == "" {
		return nil, errors.New("dashboard credentials are not set: APP_USERNAME and APP_PASSWORD are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Credentials{username: username, hash: hash}, nil
}

// Verify checks a submitted login. The username comparison is constant
// time and the password check runs even for unknown usernames so both
// paths cost the same.
func (c *Credentials) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return userOK && passOK
}

// Sessions wraps the cookie store used by the login gate.
type Sessions struct {
	store  *sessions.CookieStore
	logger *zap.Logger
}

// NewSessions builds the session store. Without a configured key a
// random per-process key is used, which signs everyone out on restart.
func NewSessions(key string, secure bool, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = randomKey()
		logger.Warn("session key not configured, sessions will not survive a restart")
	} else if len(key) < 32 {
		logger.Warn("session key is short, 32+ chars recommended", zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, logger: logger}
}

func (s *Sessions) IsAuthenticated(r *http.Request) bool {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return false
	}
	isAuth, _ := sess.Values[isAuthKey].(bool)
	return isAuth
}

// SignIn marks the session authenticated and writes the cookie.
func (s *Sessions) SignIn(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values[isAuthKey] = true
	return sess.Save(r, w)
}

// SignOut expires the session cookie immediately.
func (s *Sessions) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		s.logger.Warn("session decode failed during logout", zap.Error(err))
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RequireSignedIn redirects anonymous requests to the login page,
// preserving the requested URI as a return parameter.
func (s *Sessions) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		ret := url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
	})
}

func randomKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("server: cannot read random session key: " + err.Error())
	}
	return string(buf)
}

// safeReturn keeps login redirects on-site. Anything that is not a
// plain local path falls back to the dashboard root.
func safeReturn(ret string) string {
	if ret == "" || ret[0] != '/' || (len(ret) > 1 && ret[1] == '/') {
		return "/"
	}
	return ret
}

// Package identity runs the phone verification flow that stands between an
// anonymous visitor and a purchase.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/address"
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
)

const (
	CheckoutPath           = "/checkout"
	defaultResendCooldown  = 60 * time.Second
	defaultOTPLength       = 6
	msgPhoneLocked         = "verified phone cannot be changed"
	msgVerificationPending = "no verification in progress"
)

type otpService interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*strapi.AuthResponse, error)
}

type profileService interface {
	UpdateUser(ctx context.Context, token string, id int64, update strapi.UserUpdate) (*strapi.User, error)
}

type sessionStore interface {
	Set(ctx context.Context, token string, user session.User) error
	UpdateUser(ctx context.Context, user session.User) error
	Current() (string, session.User, bool)
}

type cartStore interface {
	Add(ctx context.Context, line cart.Line) (cart.Result, error)
	Sync(ctx context.Context) (cart.SyncResult, error)
	IsEmpty() bool
}

// Completion is what happened when the gate reached READY.
type Completion struct {
	Intent      string       `json:"intent"`
	Redirect    string       `json:"redirect,omitempty"`
	CartResult  *cart.Result `json:"cart,omitempty"`
	SyncWarning bool         `json:"syncWarning,omitempty"`
}

// Snapshot is the externally visible gate state.
type Snapshot struct {
	State           enums.GateState `json:"state"`
	Intent          string          `json:"intent"`
	Phone           string          `json:"phone,omitempty"`
	PhoneLocked     bool            `json:"phoneLocked"`
	Error           string          `json:"error,omitempty"`
	ResendAvailable *time.Time      `json:"resendAvailableAt,omitempty"`
	Completion      *Completion     `json:"completion,omitempty"`
}

type Config struct {
	ResendCooldown time.Duration
	OTPLength      int
	Now            func() time.Time
	Metrics        *metrics.Storefront
	Logger         *logger.Logger
}

// Gate is one visitor's verification flow. Calls are serialized.
type Gate struct {
	mu sync.Mutex

	otp      otpService
	profiles profileService
	session  sessionStore
	cart     cartStore
	cfg      Config

	state       enums.GateState
	intent      Intent
	phone       string
	lastErr     string
	lastSent    time.Time
	syncWarning bool
}

func NewGate(otp otpService, profiles profileService, sess sessionStore, c cartStore, cfg Config) (*Gate, error) {
	if otp == nil {
		return nil, fmt.Errorf("otp service required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile service required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session store required")
	}
	if c == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = defaultResendCooldown
	}
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = defaultOTPLength
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gate{
		otp:      otp,
		profiles: profiles,
		session:  sess,
		cart:     c,
		cfg:      cfg,
		state:    enums.GateStateAnonymous,
		intent:   NoIntent{},
	}, nil
}

// Begin starts a gated action. An identified visitor skips phone verification.
// Any flow already in progress is abandoned together with its intent.
func (g *Gate) Begin(ctx context.Context, intent Intent) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if intent == nil {
		intent = NoIntent{}
	}
	g.reset()
	g.intent = intent

	_, user, identified := g.session.Current()
	if identified {
		g.phone = user.Phone
		g.state = enums.GateStateVerified
		return g.afterVerified(ctx, user)
	}
	g.state = enums.GateStateAwaitingOTP
	return g.snapshot(nil), nil
}

// SubmitPhone sends a one-time code to phone.
func (g *Gate) SubmitPhone(ctx context.Context, phone string) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.expect(enums.GateStateAwaitingOTP); err != nil {
		return g.snapshot(nil), err
	}
	phone = strings.TrimSpace(phone)
	if !address.ValidPhone(phone) {
		return g.fail(pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number").
			WithDetails(map[string]string{"phone": address.Message(address.TagMobile)}))
	}
	if err := g.otp.SendOTP(ctx, phone); err != nil {
		return g.fail(err)
	}
	g.cfg.Metrics.OTP("sent")
	g.phone = phone
	g.lastSent = g.cfg.Now()
	g.lastErr = ""
	g.state = enums.GateStateAwaitingCode
	return g.snapshot(nil), nil
}

// Resend issues a fresh code once the cooldown since the previous send has elapsed.
func (g *Gate) Resend(ctx context.Context) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.expect(enums.GateStateAwaitingCode); err != nil {
		return g.snapshot(nil), err
	}
	if wait := g.lastSent.Add(g.cfg.ResendCooldown).Sub(g.cfg.Now()); wait > 0 {
		seconds := int((wait + time.Second - 1) / time.Second)
		return g.snapshot(nil), pkgerrors.New(pkgerrors.CodeRateLimit, "please wait before requesting another code").
			WithDetails(map[string]int{"retryAfterSeconds": seconds})
	}
	if err := g.otp.SendOTP(ctx, g.phone); err != nil {
		return g.fail(err)
	}
	g.cfg.Metrics.OTP("resent")
	g.lastSent = g.cfg.Now()
	g.lastErr = ""
	return g.snapshot(nil), nil
}

// SubmitCode verifies the code. A rejected code keeps the gate waiting for a code.
func (g *Gate) SubmitCode(ctx context.Context, code string) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.expect(enums.GateStateAwaitingCode); err != nil {
		return g.snapshot(nil), err
	}
	code = strings.TrimSpace(code)
	if !g.validCode(code) {
		return g.fail(pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("code must be %d digits", g.cfg.OTPLength)).
			WithDetails(map[string]string{"code": "invalid"}))
	}

	auth, err := g.otp.VerifyOTP(ctx, g.phone, code)
	if err != nil {
		g.cfg.Metrics.OTP("rejected")
		return g.fail(err)
	}
	user := session.UserFromRemote(auth.User)
	if user.Phone == "" {
		user.Phone = g.phone
	}
	if err := g.session.Set(ctx, auth.JWT, user); err != nil {
		return g.fail(err)
	}
	g.cfg.Metrics.OTP("verified")
	g.lastErr = ""
	g.state = enums.GateStateVerified

	res, err := g.cart.Sync(ctx)
	if err != nil || res.Status == cart.StatusSyncWarning {
		g.syncWarning = true
		g.logWarn(ctx, "cart reconciliation after verification did not complete")
	}
	return g.afterVerified(ctx, user)
}

// SubmitAddress stores the delivery address on the profile. The phone on the
// address must be the verified one.
func (g *Gate) SubmitAddress(ctx context.Context, addr types.Address) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.expect(enums.GateStateAwaitingAddress); err != nil {
		return g.snapshot(nil), err
	}
	addr = addr.Normalize()
	if addr.Phone == "" {
		addr.Phone = g.phone
	}
	if g.phone != "" && addr.Phone != g.phone {
		return g.fail(pkgerrors.New(pkgerrors.CodeValidation, msgPhoneLocked).
			WithDetails(map[string]string{"phone": msgPhoneLocked}))
	}
	if err := address.Validate(addr); err != nil {
		return g.fail(err)
	}

	token, current, identified := g.session.Current()
	if !identified {
		g.reset()
		return g.snapshot(nil), pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}
	updated, err := g.profiles.UpdateUser(ctx, token, current.ID, session.AddressUpdate(addr))
	if err != nil {
		return g.fail(err)
	}
	next := session.UserFromRemote(*updated)
	if next.ID == 0 {
		next = current
		next.Address = addr
	}
	if !next.Address.OnFile() {
		next.Address = addr
	}
	if err := g.session.UpdateUser(ctx, next); err != nil {
		return g.fail(err)
	}
	g.lastErr = ""
	return g.complete(ctx)
}

// Close abandons the flow. A pending intent is discarded, never resumed.
func (g *Gate) Close() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
	return g.snapshot(nil)
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(nil)
}

func (g *Gate) afterVerified(ctx context.Context, user session.User) (Snapshot, error) {
	if !user.Address.OnFile() {
		g.state = enums.GateStateAwaitingAddress
		return g.snapshot(nil), nil
	}
	return g.complete(ctx)
}

// complete moves to READY and consumes the pending intent exactly once.
func (g *Gate) complete(ctx context.Context) (Snapshot, error) {
	g.state = enums.GateStateReady
	intent := g.intent
	g.intent = NoIntent{}

	done := &Completion{Intent: IntentName(intent), SyncWarning: g.syncWarning}
	switch in := intent.(type) {
	case AddToCart:
		res, err := g.cart.Add(ctx, in.Line)
		if err != nil {
			return g.snapshot(done), err
		}
		done.CartResult = &res
	default:
		if !g.cart.IsEmpty() {
			done.Redirect = CheckoutPath
		}
	}
	return g.snapshot(done), nil
}

func (g *Gate) expect(state enums.GateState) error {
	if g.state == state {
		return nil
	}
	if g.state == enums.GateStateAnonymous {
		return pkgerrors.New(pkgerrors.CodeStateConflict, msgVerificationPending)
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("gate is %s, expected %s", g.state, state))
}

func (g *Gate) validCode(code string) bool {
	if len(code) != g.cfg.OTPLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (g *Gate) fail(err error) (Snapshot, error) {
	g.lastErr = publicMessage(err)
	return g.snapshot(nil), err
}

func (g *Gate) reset() {
	g.state = enums.GateStateAnonymous
	g.intent = NoIntent{}
	g.phone = ""
	g.lastErr = ""
	g.lastSent = time.Time{}
	g.syncWarning = false
}

func (g *Gate) snapshot(done *Completion) Snapshot {
	s := Snapshot{
		State:       g.state,
		Intent:      IntentName(g.intent),
		Phone:       g.phone,
		PhoneLocked: g.phoneLocked(),
		Error:       g.lastErr,
		Completion:  done,
	}
	if g.state == enums.GateStateAwaitingCode && !g.lastSent.IsZero() {
		at := g.lastSent.Add(g.cfg.ResendCooldown)
		s.ResendAvailable = &at
	}
	return s
}

func (g *Gate) phoneLocked() bool {
	switch g.state {
	case enums.GateStateVerified, enums.GateStateAwaitingAddress, enums.GateStateReady:
		return g.phone != ""
	}
	return false
}

func (g *Gate) logWarn(ctx context.Context, msg string) {
	if g.cfg.Logger != nil {
		g.cfg.Logger.Warn(ctx, msg)
	}
}

func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return "something went wrong, please try again"
}

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

const goodCode = "482913"

type fakeOTP struct {
	sent   []string
	user   strapi.User
	verify int
}

func (f *fakeOTP) SendOTP(_ context.Context, phone string) error {
	f.sent = append(f.sent, phone)
	return nil
}

func (f *fakeOTP) VerifyOTP(_ context.Context, phone, code string) (*strapi.AuthResponse, error) {
	f.verify++
	if code != goodCode {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid OTP")
	}
	user := f.user
	user.Phone = strapi.FlexString(phone)
	return &strapi.AuthResponse{JWT: "jwt-" + phone, User: user}, nil
}

type fakeProfiles struct {
	updates []strapi.UserUpdate
}

func (f *fakeProfiles) UpdateUser(_ context.Context, _ string, id int64, update strapi.UserUpdate) (*strapi.User, error) {
	f.updates = append(f.updates, update)
	return &strapi.User{
		ID:           id,
		Phone:        strapi.FlexString(*update.Phone),
		FullName:     *update.FullName,
		AddressLine1: *update.AddressLine1,
		City:         *update.City,
		State:        *update.State,
		Pin:          strapi.FlexString(*update.Pin),
	}, nil
}

type memRemote struct {
	lines []cart.Line
}

func (m *memRemote) Pull(context.Context, string, int64) ([]cart.Line, error) {
	return m.lines, nil
}

func (m *memRemote) Push(_ context.Context, _ string, _ int64, lines []cart.Line) error {
	m.lines = lines
	return nil
}

type fixture struct {
	gate    *Gate
	otp     *fakeOTP
	profile *fakeProfiles
	session *session.Store
	cart    *cart.Store
	remote  *memRemote
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemory(0)
	sess, err := session.NewStore("v1", mem)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	remote := &memRemote{}
	c, err := cart.NewStore("v1", mem, sess, remote)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	f := &fixture{
		otp:     &fakeOTP{user: strapi.User{ID: 11, Username: "9876543210"}},
		profile: &fakeProfiles{},
		session: sess,
		cart:    c,
		remote:  remote,
		now:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	f.gate, err = NewGate(f.otp, f.profile, sess, c, Config{Now: func() time.Time { return f.now }})
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	return f
}

func ghee() cart.Line {
	return cart.Line{ProductID: 1, VariantID: 10, Price: decimal.NewFromInt(500), Title: "A2 Ghee"}
}

func validAddress(phone string) types.Address {
	return types.Address{FullName: "Meera Rao", Phone: phone, Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"}
}

func TestAnonymousCheckoutReachesAwaitingAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.cart.Add(ctx, ghee()); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap, err := f.gate.Begin(ctx, GoToCheckout{})
	if err != nil || snap.State != enums.GateStateAwaitingOTP {
		t.Fatalf("begin: %+v %v", snap, err)
	}
	snap, err = f.gate.SubmitPhone(ctx, "9876543210")
	if err != nil || snap.State != enums.GateStateAwaitingCode {
		t.Fatalf("phone: %+v %v", snap, err)
	}

	snap, err = f.gate.SubmitCode(ctx, "000000")
	if err == nil {
		t.Fatal("expected wrong code to fail")
	}
	if snap.State != enums.GateStateAwaitingCode || snap.Error == "" {
		t.Fatalf("wrong code should keep AWAITING_CODE with a message, got %+v", snap)
	}
	if f.session.IsIdentified() {
		t.Fatal("wrong code must not identify the visitor")
	}

	snap, err = f.gate.SubmitCode(ctx, goodCode)
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if snap.State != enums.GateStateAwaitingAddress || !snap.PhoneLocked {
		t.Fatalf("expected AWAITING_ADDRESS with locked phone, got %+v", snap)
	}
	if !f.session.IsIdentified() {
		t.Fatal("verification should store the session")
	}
	if len(f.remote.lines) != 1 {
		t.Fatalf("verification should reconcile the cart, remote=%+v", f.remote.lines)
	}

	snap, err = f.gate.SubmitAddress(ctx, validAddress("9876543210"))
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if snap.State != enums.GateStateReady || snap.Completion == nil || snap.Completion.Redirect != CheckoutPath {
		t.Fatalf("expected redirect to checkout, got %+v", snap)
	}
	_, user, _ := f.session.Current()
	if !user.Address.OnFile() {
		t.Fatal("address should be on the session user")
	}
}

func TestInvalidCodeFormatNeverReachesBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.gate.Begin(ctx, NoIntent{})
	_, _ = f.gate.SubmitPhone(ctx, "9876543210")

	for _, code := range []string{"12345", "1234567", "12a456", "", "١٢٣"} {
		snap, err := f.gate.SubmitCode(ctx, code)
		if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("code %q: expected validation error, got %v", code, err)
		}
		if snap.State != enums.GateStateAwaitingCode {
			t.Fatalf("code %q changed state to %s", code, snap.State)
		}
	}
	if f.otp.verify != 0 {
		t.Fatalf("expected no verify calls, got %d", f.otp.verify)
	}
}

func TestSubmitPhoneRejectsInvalidNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.gate.Begin(ctx, NoIntent{})

	for _, phone := range []string{"5876543210", "987654321", "+919876543210"} {
		if _, err := f.gate.SubmitPhone(ctx, phone); err == nil {
			t.Fatalf("phone %q should be rejected", phone)
		}
	}
	if len(f.otp.sent) != 0 {
		t.Fatal("invalid phones must not trigger a send")
	}
}

func TestResendHonoursCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.gate.Begin(ctx, NoIntent{})
	_, _ = f.gate.SubmitPhone(ctx, "9876543210")

	f.now = f.now.Add(59 * time.Second)
	_, err := f.gate.Resend(ctx)
	if pkgerrors.As(err).Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected cooldown error, got %v", err)
	}

	f.now = f.now.Add(time.Second)
	snap, err := f.gate.Resend(ctx)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(f.otp.sent) != 2 || snap.State != enums.GateStateAwaitingCode {
		t.Fatalf("expected a second send, got %v %+v", f.otp.sent, snap)
	}
	if want := f.now.Add(60 * time.Second); snap.ResendAvailable == nil || !snap.ResendAvailable.Equal(want) {
		t.Fatalf("cooldown should reset, got %v", snap.ResendAvailable)
	}
}

func TestAddressPhoneIsLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.gate.Begin(ctx, NoIntent{})
	_, _ = f.gate.SubmitPhone(ctx, "9876543210")
	_, _ = f.gate.SubmitCode(ctx, goodCode)

	snap, err := f.gate.SubmitAddress(ctx, validAddress("9123456780"))
	if err == nil || snap.State != enums.GateStateAwaitingAddress {
		t.Fatalf("expected rejection, got %+v %v", snap, err)
	}
	if len(f.profile.updates) != 0 {
		t.Fatal("rejected address must not reach the backend")
	}

	addr := validAddress("")
	snap, err = f.gate.SubmitAddress(ctx, addr)
	if err != nil || snap.State != enums.GateStateReady {
		t.Fatalf("blank phone should default to the verified one: %+v %v", snap, err)
	}
}

func TestCloseDiscardsPendingIntent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.gate.Begin(ctx, AddToCart{Line: ghee()})
	_, _ = f.gate.SubmitPhone(ctx, "9876543210")

	snap := f.gate.Close()
	if snap.State != enums.GateStateAnonymous || snap.Intent != "none" {
		t.Fatalf("unexpected snapshot after close %+v", snap)
	}
	if _, err := f.gate.SubmitCode(ctx, goodCode); err == nil {
		t.Fatal("closed gate must not accept a code")
	}
	if !f.cart.IsEmpty() {
		t.Fatal("discarded intent must never be resumed")
	}
}

func TestAddToCartIntentConsumedOnceForKnownAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.otp.user.AddressLine1 = "12 MG Road"
	f.otp.user.City = "Bengaluru"
	f.otp.user.Pin = "560001"

	_, _ = f.gate.Begin(ctx, AddToCart{Line: ghee()})
	_, _ = f.gate.SubmitPhone(ctx, "9876543210")
	snap, err := f.gate.SubmitCode(ctx, goodCode)
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if snap.State != enums.GateStateReady || snap.Completion == nil || snap.Completion.Intent != "add_to_cart" {
		t.Fatalf("expected READY with add_to_cart completion, got %+v", snap)
	}
	if snap.Completion.Redirect != "" {
		t.Fatal("resuming a cart addition should not redirect")
	}
	if f.cart.TotalItems() != 1 {
		t.Fatalf("expected the deferred line in the cart, got %d", f.cart.TotalItems())
	}
	if snap.Intent != "none" {
		t.Fatal("intent must be consumed")
	}
}

func TestBeginForIdentifiedVisitorSkipsVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := session.User{ID: 11, Phone: "9876543210", Address: validAddress("9876543210")}
	if err := f.session.Set(ctx, "jwt", user); err != nil {
		t.Fatalf("set: %v", err)
	}

	snap, err := f.gate.Begin(ctx, GoToCheckout{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if snap.State != enums.GateStateReady {
		t.Fatalf("expected READY, got %s", snap.State)
	}
	if snap.Completion.Redirect != "" {
		t.Fatal("empty cart should not redirect to checkout")
	}
	if len(f.otp.sent) != 0 {
		t.Fatal("no code should be sent to an identified visitor")
	}
}

func TestParseIntent(t *testing.T) {
	line := ghee()
	if in, ok := ParseIntent("add_to_cart", &line); !ok || IntentName(in) != "add_to_cart" {
		t.Fatalf("unexpected %v %v", in, ok)
	}
	if _, ok := ParseIntent("add_to_cart", nil); ok {
		t.Fatal("add_to_cart needs a line")
	}
	if _, ok := ParseIntent("teleport", nil); ok {
		t.Fatal("unknown intents must be rejected")
	}
}

package identity

import "github.com/angelmondragon/gheehive-storefront/internal/cart"

// Intent is the action deferred until the visitor is verified. It is one of
// NoIntent, AddToCart or GoToCheckout.
type Intent interface {
	intentName() string
}

type NoIntent struct{}

type AddToCart struct {
	Line cart.Line
}

type GoToCheckout struct{}

func (NoIntent) intentName() string     { return "none" }
func (AddToCart) intentName() string    { return "add_to_cart" }
func (GoToCheckout) intentName() string { return "go_to_checkout" }

// IntentName returns the wire name of an intent; nil reads as "none".
func IntentName(i Intent) string {
	if i == nil {
		return NoIntent{}.intentName()
	}
	return i.intentName()
}

// ParseIntent builds an intent from its wire name. line is only read for add_to_cart.
func ParseIntent(name string, line *cart.Line) (Intent, bool) {
	switch name {
	case "", "none":
		return NoIntent{}, true
	case "add_to_cart":
		if line == nil {
			return nil, false
		}
		return AddToCart{Line: *line}, true
	case "go_to_checkout":
		return GoToCheckout{}, true
	}
	return nil, false
}

package cart

import (
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/shopspring/decimal"
)

// Line is one product variant in the cart.
type Line struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	VariantID int64           `json:"variantId" validate:"required,gt=0"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Weight    int             `json:"weight"`
	Title     string          `json:"title"`
	Image     *string         `json:"image,omitempty"`
}

// Key identifies a line; no two lines in a cart share one.
type Key struct {
	ProductID int64
	VariantID int64
}

func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, VariantID: l.VariantID}
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Merge folds remote into local. Remote lines replace local lines with the same
// key, local-only lines are kept in place and remote-only lines are appended.
func Merge(local, remote []Line) []Line {
	remote = normalize(remote)
	byKey := make(map[Key]Line, len(remote))
	for _, line := range remote {
		byKey[line.Key()] = line
	}

	merged := make([]Line, 0, len(local)+len(remote))
	seen := make(map[Key]struct{}, len(local)+len(remote))
	for _, line := range normalize(local) {
		if winner, ok := byKey[line.Key()]; ok {
			line = winner
		}
		merged = append(merged, line)
		seen[line.Key()] = struct{}{}
	}
	for _, line := range remote {
		if _, ok := seen[line.Key()]; ok {
			continue
		}
		merged = append(merged, line)
		seen[line.Key()] = struct{}{}
	}
	return merged
}

// normalize drops non-positive quantities and repeated keys (first occurrence wins).
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	seen := make(map[Key]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if _, dup := seen[line.Key()]; dup {
			continue
		}
		seen[line.Key()] = struct{}{}
		out = append(out, line)
	}
	return out
}

func equalLines(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key() != b[i].Key() ||
			a[i].Quantity != b[i].Quantity ||
			!a[i].Price.Equal(b[i].Price) ||
			a[i].Weight != b[i].Weight ||
			a[i].Title != b[i].Title ||
			imageOf(a[i]) != imageOf(b[i]) {
			return false
		}
	}
	return true
}

func imageOf(l Line) string {
	if l.Image == nil {
		return ""
	}
	return *l.Image
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return []Line{}
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// FromRemote converts the backend cart snapshot.
func FromRemote(items []strapi.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Weight:    item.Weight,
			Title:     item.Title,
			Image:     item.Image,
		})
	}
	return lines
}

// ToRemote converts lines into the backend cart snapshot.
func ToRemote(lines []Line) []strapi.CartItem {
	items := make([]strapi.CartItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, strapi.CartItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Weight:    line.Weight,
			Title:     line.Title,
			Image:     line.Image,
		})
	}
	return items
}

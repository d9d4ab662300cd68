package strapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

type Variant struct {
	ID       int64           `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Weight   int             `json:"weight"`
	Stock    int             `json:"stock"`
}

type Image struct {
	ID              int64  `json:"id"`
	URL             string `json:"url"`
	AlternativeText string `json:"alternativeText,omitempty"`
}

type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Rating      float64   `json:"rating"`
	PunchLine   string    `json:"punchLine"`
	Purchases   int       `json:"purchases"`
	Type        string    `json:"type"`
	Variants    []Variant `json:"variants"`
	Tags        []string  `json:"tags"`
	Images      []Image   `json:"images"`
}

type productAttributes struct {
	Title       string  `json:"Title"`
	Description string  `json:"Description"`
	Rating      float64 `json:"Rating"`
	PunchLine   string  `json:"PunchLine"`
	Purchases   int     `json:"Purchases"`
	Type        string  `json:"Type"`
	Variants    []struct {
		ID       int64           `json:"id"`
		Price    decimal.Decimal `json:"Price"`
		Discount decimal.Decimal `json:"Discount"`
		Weight   int             `json:"Weight"`
		Stock    int             `json:"Stock"`
	} `json:"Variants"`
	Tags []struct {
		Tag string `json:"Tag"`
	} `json:"Tags"`
	Images struct {
		Data []entity[struct {
			URL             string `json:"url"`
			AlternativeText string `json:"alternativeText"`
		}] `json:"data"`
	} `json:"Images"`
}

func (a productAttributes) toProduct(id int64) Product {
	p := Product{
		ID:          id,
		Title:       a.Title,
		Description: a.Description,
		Rating:      a.Rating,
		PunchLine:   a.PunchLine,
		Purchases:   a.Purchases,
		Type:        a.Type,
		Variants:    make([]Variant, 0, len(a.Variants)),
		Tags:        make([]string, 0, len(a.Tags)),
		Images:      make([]Image, 0, len(a.Images.Data)),
	}
	for _, v := range a.Variants {
		p.Variants = append(p.Variants, Variant{ID: v.ID, Price: v.Price, Discount: v.Discount, Weight: v.Weight, Stock: v.Stock})
	}
	for _, t := range a.Tags {
		if t.Tag != "" {
			p.Tags = append(p.Tags, t.Tag)
		}
	}
	for _, img := range a.Images.Data {
		p.Images = append(p.Images, Image{ID: img.ID, URL: img.Attributes.URL, AlternativeText: img.Attributes.AlternativeText})
	}
	return p
}

// ListProducts returns every product of productType. An empty type lists the whole catalog.
func (c *Client) ListProducts(ctx context.Context, productType string) ([]Product, error) {
	query := url.Values{"populate": []string{"*"}}
	if productType != "" {
		query.Set("filters[Type][$eq]", productType)
	}
	var out collection[productAttributes]
	if err := c.do(ctx, http.MethodGet, "/api/products", query, "", nil, &out); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(out.Data))
	for _, item := range out.Data {
		products = append(products, item.Attributes.toProduct(item.ID))
	}
	return products, nil
}

// GetProduct fetches one product with its variants and media.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	query := url.Values{"populate": []string{"*"}}
	var out single[productAttributes]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", id), query, "", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	product := out.Data.Attributes.toProduct(out.Data.ID)
	return &product, nil
}

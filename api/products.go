package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ProductService covers the product catalogue endpoints.
type ProductService struct {
	client *Client
}

// Product is a catalogue entry as returned by the list endpoint.
type Product struct {
	ID            int    `json:"id"`
	Name          string `json:"nom"`
	Slug          string `json:"slug"`
	Price         string `json:"prix"`
	PromoPrice    string `json:"prix_promo"`
	CurrentPrice  string `json:"prix_actuel"`
	DiscountPct   int    `json:"pourcentage_remise"`
	Stock         int    `json:"stock"`
	InStock       bool   `json:"est_en_stock"`
	AverageRating string `json:"note_moyenne"`
	ReviewCount   int    `json:"nombre_avis"`
	CategoryName  string `json:"categorie_nom"`
	Featured      bool   `json:"en_vedette"`
	Status        string `json:"statut"`
	ImageURL      string `json:"image_principale"`
	CreatedAt     string `json:"date_creation"`
}

// ProductPage is the paginated product list response.
type ProductPage struct {
	Count    int       `json:"count"`
	Next     string    `json:"next"`
	Previous string    `json:"previous"`
	Results  []Product `json:"results"`
}

// ProductFilter narrows a product listing. Zero values are omitted.
type ProductFilter struct {
	Search   string
	Category string
	Featured bool
	Page     int
}

func (f ProductFilter) query() string {
	values := url.Values{}
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	if f.Category != "" {
		values.Set("categorie", f.Category)
	}
	if f.Featured {
		values.Set("en_vedette", "true")
	}
	if f.Page > 0 {
		values.Set("page", strconv.Itoa(f.Page))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// List fetches a page of the catalogue.
func (s *ProductService) List(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	var page ProductPage
	if err := s.client.Do(ctx, http.MethodGet, "/api/produits/"+filter.query(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one product by its numeric ID.
func (s *ProductService) Get(ctx context.Context, id int) (*Product, error) {
	var product Product
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("/api/produits/%d/", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

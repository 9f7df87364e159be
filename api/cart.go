package api

import (
	"context"
	"fmt"
	"net/http"
)

// CartService covers the shopping cart endpoints.
type CartService struct {
	client *Client
}

// CartItem is one line of the cart. Price fields are decimal strings, as
// serialized by the backend.
type CartItem struct {
	ID            int    `json:"id"`
	ProductID     int    `json:"produit"`
	ProductName   string `json:"produit_nom"`
	ProductSlug   string `json:"produit_slug"`
	ProductStatus string `json:"produit_statut"`
	StockLeft     int    `json:"stock_disponible"`
	Quantity      int    `json:"quantite"`
	UnitPrice     string `json:"prix_snapshot"`
	Subtotal      string `json:"sous_total"`
	ImageURL      string `json:"image_principale"`
	AddedAt       string `json:"date_ajout"`
}

// Cart is the full cart with computed totals.
type Cart struct {
	ID        int        `json:"id"`
	Items     []CartItem `json:"items"`
	Total     string     `json:"total"`
	ItemCount int        `json:"nombre_articles"`
	IsEmpty   bool       `json:"est_vide"`
	CreatedAt string     `json:"date_creation"`
	UpdatedAt string     `json:"date_modification"`
}

// Get fetches the current cart.
func (s *CartService) Get(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := s.client.Do(ctx, http.MethodGet, "/api/panier/", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// CartUpdate is the backend's response to a cart mutation: the affected
// line plus the refreshed totals. Item is nil when the mutation removed
// the line (quantity dropped to zero, or an explicit removal).
type CartUpdate struct {
	Message   string    `json:"message"`
	Item      *CartItem `json:"item"`
	ItemCount int       `json:"nombre_articles"`
	Total     string    `json:"total"`
}

// AddItem adds quantity units of a product to the cart.
func (s *CartService) AddItem(ctx context.Context, productID, quantity int) (*CartUpdate, error) {
	body := map[string]int{"produit_id": productID, "quantite": quantity}

	var update CartUpdate
	if err := s.client.Do(ctx, http.MethodPost, "/api/panier/ajouter/", body, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// UpdateItem replaces the quantity of a cart line.
func (s *CartService) UpdateItem(ctx context.Context, itemID, quantity int) (*CartUpdate, error) {
	body := map[string]int{"quantite": quantity}

	var update CartUpdate
	if err := s.client.Do(ctx, http.MethodPatch, fmt.Sprintf("/api/panier/items/%d/", itemID), body, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// RemoveItem deletes a cart line.
func (s *CartService) RemoveItem(ctx context.Context, itemID int) (*CartUpdate, error) {
	var update CartUpdate
	if err := s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/panier/items/%d/", itemID), nil, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context) error {
	return s.client.Do(ctx, http.MethodDelete, "/api/panier/vider/", nil, nil)
}

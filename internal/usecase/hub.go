package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"meingenie/internal/domain"
)

// Choice is one entry of a navigation menu.
type Choice struct {
	Key   string
	Title string
	Blurb string
	Page  domain.Page
}

var hubChoices = []Choice{
	{Key: "formino", Title: "Formino", Blurb: "Fill in official forms by chatting.", Page: domain.PageForminoUpload},
	{Key: "termino", Title: "Termino", Blurb: "Find and book appointments with authorities.", Page: domain.PageTermino},
	{Key: "dashboard", Title: "Dashboard", Blurb: "Your documents and recent activity.", Page: domain.PageDashboard},
	{Key: "profile", Title: "Profile", Blurb: "Personal data used to fill your forms.", Page: domain.PageProfile},
}

// Hub is the service chooser shown after sign-in.
type Hub struct {
	nav Navigator
}

func NewHub(nav Navigator) (*Hub, error) {
	if nav == nil {
		return nil, errors.New("usecase: navigator must not be nil")
	}
	return &Hub{nav: nav}, nil
}

// Choices returns the menu entries in display order.
func (h *Hub) Choices() []Choice {
	return append([]Choice(nil), hubChoices...)
}

// Choose navigates to the entry whose key (or 1-based position) matches.
func (h *Hub) Choose(ctx context.Context, key string) (Choice, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, c := range hubChoices {
		if c.Key == key || strconv.Itoa(i+1) == key {
			h.nav.Navigate(ctx, domain.Destination{Page: c.Page})
			return c, nil
		}
	}
	return Choice{}, validationError(map[string]string{"choice": "Unknown choice \"" + key + "\"."})
}

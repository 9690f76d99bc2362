package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iudanet/camerannonces/internal/client/transport"
	"github.com/iudanet/camerannonces/internal/models"
	"github.com/iudanet/camerannonces/pkg/api"
)

// Categories возвращает список категорий
func (c *Client) Categories(ctx context.Context) (*api.CategoriesResponse, error) {
	var resp api.CategoriesResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/categories"), &resp, FallbackCatalog); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CategoriesWithCount возвращает категории с количеством объявлений
func (c *Client) CategoriesWithCount(ctx context.Context) (*api.CategoriesWithCountResponse, error) {
	var resp api.CategoriesWithCountResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/categories/with-count"), &resp, FallbackCatalog); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cities возвращает список городов
func (c *Client) Cities(ctx context.Context) (*api.CitiesResponse, error) {
	var resp api.CitiesResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/cities"), &resp, FallbackCatalog); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Regions возвращает список регионов
func (c *Client) Regions(ctx context.Context) (*api.RegionsResponse, error) {
	var resp api.RegionsResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/cities/regions"), &resp, FallbackCatalog); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Quartiers возвращает районы города
func (c *Client) Quartiers(ctx context.Context, cityID int64) (*api.QuartiersResponse, error) {
	var resp api.QuartiersResponse
	path := fmt.Sprintf("/cities/%d/quartiers", cityID)
	if err := c.call(ctx, transport.NewCall(http.MethodGet, path), &resp, FallbackCatalog); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Listings возвращает страницу последних объявлений
func (c *Client) Listings(ctx context.Context, page, size int) (*api.ListingsResponse, error) {
	var resp api.ListingsResponse
	call := transport.NewCall(http.MethodGet, "/listings")
	call.Query = url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	if err := c.call(ctx, call, &resp, FallbackListings); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Listing возвращает объявление по ID
func (c *Client) Listing(ctx context.Context, id int64) (*api.ListingResponse, error) {
	var resp api.ListingResponse
	path := fmt.Sprintf("/listings/%d", id)
	if err := c.call(ctx, transport.NewCall(http.MethodGet, path), &resp, FallbackListing); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search ищет объявления по фильтру
func (c *Client) Search(ctx context.Context, filter models.SearchFilter) (*api.ListingsResponse, error) {
	var resp api.ListingsResponse
	call := transport.NewCall(http.MethodPost, "/search")
	if err := c.jsonCall(ctx, call, filter.WithDefaults(), &resp, FallbackSearch); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Favorites возвращает избранные объявления текущего пользователя
func (c *Client) Favorites(ctx context.Context) (*api.ListingsResponse, error) {
	var resp api.ListingsResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/favorites"), &resp, FallbackFavorites); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddFavorite добавляет объявление в избранное
func (c *Client) AddFavorite(ctx context.Context, listingID int64) error {
	var resp api.MessageResponse
	path := fmt.Sprintf("/favorites/%d", listingID)
	return c.call(ctx, transport.NewCall(http.MethodPost, path), &resp, FallbackFavorites)
}

// RemoveFavorite удаляет объявление из избранного
func (c *Client) RemoveFavorite(ctx context.Context, listingID int64) error {
	var resp api.MessageResponse
	path := fmt.Sprintf("/favorites/%d", listingID)
	return c.call(ctx, transport.NewCall(http.MethodDelete, path), &resp, FallbackFavorites)
}

// MyListings возвращает объявления текущего пользователя
func (c *Client) MyListings(ctx context.Context) (*api.ListingsResponse, error) {
	var resp api.ListingsResponse
	if err := c.call(ctx, transport.NewCall(http.MethodGet, "/user/my-listings"), &resp, FallbackListings); err != nil {
		return nil, err
	}
	return &resp, nil
}

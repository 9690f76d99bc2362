package api

import (
	"errors"

	"github.com/iudanet/camerannonces/internal/models"
)

// CategoriesResponse - ответ на /categories
type CategoriesResponse struct {
	Envelope
	Categories []models.Category `json:"categories"`
}

// Validate проверяет схему успешного ответа
func (r *CategoriesResponse) Validate() error {
	if r.Categories == nil {
		return errors.Join(ErrMalformed, errors.New("categories are missing"))
	}
	return nil
}

// CategoriesWithCountResponse - ответ на /categories/with-count
type CategoriesWithCountResponse struct {
	Envelope
	Categories []models.Category `json:"categoriesWithCount"`
}

// Validate проверяет схему успешного ответа
func (r *CategoriesWithCountResponse) Validate() error {
	if r.Categories == nil {
		return errors.Join(ErrMalformed, errors.New("categoriesWithCount is missing"))
	}
	return nil
}

// CitiesResponse - ответ на /cities
type CitiesResponse struct {
	Envelope
	Cities []models.City `json:"cities"`
}

// Validate проверяет схему успешного ответа
func (r *CitiesResponse) Validate() error {
	if r.Cities == nil {
		return errors.Join(ErrMalformed, errors.New("cities are missing"))
	}
	return nil
}

// RegionsResponse - ответ на /cities/regions
type RegionsResponse struct {
	Envelope
	Regions []string `json:"regions"`
}

// Validate проверяет схему успешного ответа
func (r *RegionsResponse) Validate() error {
	if r.Regions == nil {
		return errors.Join(ErrMalformed, errors.New("regions are missing"))
	}
	return nil
}

// QuartiersResponse - ответ на /cities/{id}/quartiers
type QuartiersResponse struct {
	Envelope
	Quartiers []models.Quartier `json:"quartiers"`
}

// Validate проверяет схему успешного ответа
func (r *QuartiersResponse) Validate() error {
	if r.Quartiers == nil {
		return errors.Join(ErrMalformed, errors.New("quartiers are missing"))
	}
	return nil
}

// ListingsResponse - страница объявлений (/listings, /search, /favorites, /user/my-listings)
type ListingsResponse struct {
	Envelope
	models.ListingPage
}

// Validate проверяет схему успешного ответа
func (r *ListingsResponse) Validate() error {
	if r.Listings == nil {
		return errors.Join(ErrMalformed, errors.New("listings are missing"))
	}
	return nil
}

// ListingResponse - одно объявление
type ListingResponse struct {
	Envelope
	Listing *models.Listing `json:"listing"`
}

// Validate проверяет схему успешного ответа
func (r *ListingResponse) Validate() error {
	if r.Listing == nil {
		return errors.Join(ErrMalformed, errors.New("listing is missing"))
	}
	return nil
}

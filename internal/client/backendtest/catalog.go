package backendtest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/camerannonces/internal/models"
)

func (b *Backend) seedCatalog() {
	created := models.Timestamp{Time: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}

	immobilier := models.Category{ID: 1, Name: "Immobilier", NameEnglish: "Real estate", Emoji: "🏠", DisplayOrder: 1}
	vehicules := models.Category{ID: 2, Name: "Véhicules", NameEnglish: "Vehicles", Emoji: "🚗", DisplayOrder: 2}
	electronique := models.Category{ID: 3, Name: "Électronique", NameEnglish: "Electronics", Emoji: "📱", DisplayOrder: 3}
	b.categories = []models.Category{immobilier, vehicules, electronique}

	b.cities = []models.City{
		{ID: 1, Name: "Douala", Region: "Littoral", Quartiers: []models.Quartier{
			{ID: 1, Name: "Akwa", CityName: "Douala"},
			{ID: 2, Name: "Bonapriso", CityName: "Douala"},
		}},
		{ID: 2, Name: "Yaoundé", Region: "Centre", Quartiers: []models.Quartier{
			{ID: 3, Name: "Bastos", CityName: "Yaoundé"},
		}},
	}
	b.regions = []string{"Centre", "Littoral"}

	b.listings = []models.Listing{
		{ID: 1, Title: "Appartement 3 pièces à Bonapriso", Price: 250000, City: "Douala", District: "Bonapriso", Condition: "NEUF", Status: "ACTIVE", CreatedAt: created, Category: &immobilier},
		{ID: 2, Title: "Toyota Corolla 2015", Price: 6500000, Negotiable: true, City: "Yaoundé", District: "Bastos", Condition: "OCCASION", Status: "ACTIVE", IsUrgent: true, CreatedAt: created, Category: &vehicules},
		{ID: 3, Title: "iPhone 13 Pro", Price: 450000, City: "Douala", District: "Akwa", Condition: "OCCASION", Status: "ACTIVE", IsPremium: true, CreatedAt: created, Category: &electronique},
	}
}

type listingsResponse struct {
	envelope
	models.ListingPage
}

func (b *Backend) handleCategories(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "categories": b.categories})
}

func (b *Backend) handleCategoriesWithCount(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counted := make([]models.Category, 0, len(b.categories))
	for _, c := range b.categories {
		for _, l := range b.listings {
			if l.Category != nil && l.Category.ID == c.ID {
				c.ListingsCount++
			}
		}
		counted = append(counted, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "categoriesWithCount": counted})
}

func (b *Backend) handleCities(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cities": b.cities})
}

func (b *Backend) handleRegions(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "regions": b.regions})
}

func (b *Backend) handleQuartiers(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.cities {
		if c.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "quartiers": c.Quartiers})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, envelope{Message: "Ville non trouvée"})
}

func (b *Backend) handleListings(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, paginate(b.listings, page, size))
}

func (b *Backend) handleListing(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.listings {
		if l.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "listing": l})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, envelope{Message: MsgListingNotFound})
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	var filter models.SearchFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Requête invalide"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var found []models.Listing
	for _, l := range b.listings {
		if matches(l, filter) {
			found = append(found, l)
		}
	}
	writeJSON(w, http.StatusOK, paginate(found, filter.Page, filter.Size))
}

func (b *Backend) handleFavorites(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	phone := currentUser(r).profile.PhoneNumber
	var favs []models.Listing
	for _, l := range b.listings {
		if b.favorites[phone][l.ID] {
			l.IsFavorite = true
			favs = append(favs, l)
		}
	}
	writeJSON(w, http.StatusOK, paginate(favs, 0, 0))
}

func (b *Backend) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasListingLocked(id) {
		writeJSON(w, http.StatusNotFound, envelope{Message: MsgListingNotFound})
		return
	}

	phone := currentUser(r).profile.PhoneNumber
	if b.favorites[phone] == nil {
		b.favorites[phone] = make(map[int64]bool)
	}
	b.favorites[phone][id] = true
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Ajouté aux favoris"})
}

func (b *Backend) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.favorites[currentUser(r).profile.PhoneNumber], id)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Retiré des favoris"})
}

func (b *Backend) handleMyListings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	userID := currentUser(r).profile.ID
	mine := []models.Listing{}
	for _, l := range b.listings {
		if l.Seller != nil && l.Seller.ID == userID {
			mine = append(mine, l)
		}
	}
	writeJSON(w, http.StatusOK, paginate(mine, 0, 0))
}

func (b *Backend) hasListingLocked(id int64) bool {
	for _, l := range b.listings {
		if l.ID == id {
			return true
		}
	}
	return false
}

func matches(l models.Listing, f models.SearchFilter) bool {
	if f.Keyword != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(f.Keyword)) {
		return false
	}
	if f.CategoryID != 0 && (l.Category == nil || l.Category.ID != f.CategoryID) {
		return false
	}
	if f.City != "" && !strings.EqualFold(l.City, f.City) {
		return false
	}
	if f.MinPrice > 0 && l.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.Price > f.MaxPrice {
		return false
	}
	if f.PremiumOnly && !l.IsPremium {
		return false
	}
	if f.UrgentOnly && !l.IsUrgent {
		return false
	}
	return true
}

func paginate(all []models.Listing, page, size int) listingsResponse {
	if size <= 0 {
		size = models.DefaultPageSize
	}
	if page < 0 {
		page = 0
	}

	total := len(all)
	start := min(page*size, total)
	end := min(start+size, total)

	items := make([]models.Listing, 0, end-start)
	items = append(items, all[start:end]...)

	return listingsResponse{
		envelope: envelope{Success: true},
		ListingPage: models.ListingPage{
			Listings:      items,
			TotalElements: int64(total),
			TotalPages:    (total + size - 1) / size,
			CurrentPage:   page,
		},
	}
}

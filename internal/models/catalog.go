package models

// Category представляет категорию объявлений
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"nom"`
	NameEnglish   string `json:"nomAnglais,omitempty"`
	Emoji         string `json:"emoji,omitempty"`
	Description   string `json:"description,omitempty"`
	DisplayOrder  int    `json:"ordreAffichage,omitempty"`
	ListingsCount int64  `json:"nombreAnnonces,omitempty"`
}

// Quartier представляет район города
type Quartier struct {
	ID            int64  `json:"id"`
	Name          string `json:"nom"`
	CityName      string `json:"nomVille,omitempty"`
	ListingsCount int64  `json:"nombreAnnonces,omitempty"`
}

// City представляет город
type City struct {
	ID            int64      `json:"id"`
	Name          string     `json:"nom"`
	Region        string     `json:"region,omitempty"`
	ListingsCount int64      `json:"nombreAnnonces,omitempty"`
	Quartiers     []Quartier `json:"quartiers,omitempty"`
}

// Listing представляет объявление (сокращённое или полное)
type Listing struct {
	ID           int64     `json:"id"`
	Title        string    `json:"titre"`
	Description  string    `json:"description,omitempty"`
	Price        int64     `json:"prix"`
	Negotiable   bool      `json:"prixNegociable,omitempty"`
	Condition    string    `json:"etatProduit,omitempty"`
	City         string    `json:"ville,omitempty"`
	District     string    `json:"quartier,omitempty"`
	ContactPhone string    `json:"telephoneContact,omitempty"`
	Views        int64     `json:"vues,omitempty"`
	Status       string    `json:"statut,omitempty"`
	IsPremium    bool      `json:"isPremium,omitempty"`
	IsUrgent     bool      `json:"isUrgent,omitempty"`
	IsFavorite   bool      `json:"isFavorite,omitempty"`
	CreatedAt    Timestamp `json:"dateCreation"`
	Category     *Category `json:"category,omitempty"`
	Seller       *Profile  `json:"vendeur,omitempty"`
}

// ListingPage - страница результатов
type ListingPage struct {
	Listings      []Listing `json:"listings"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	CurrentPage   int       `json:"currentPage"`
}

// SearchFilter - параметры поиска объявлений
type SearchFilter struct {
	Keyword        string   `json:"motCle,omitempty"`
	CategoryID     int64    `json:"categoryId,omitempty"`
	City           string   `json:"ville,omitempty"`
	District       string   `json:"quartier,omitempty"`
	Region         string   `json:"region,omitempty"`
	MinPrice       int64    `json:"prixMin,omitempty"`
	MaxPrice       int64    `json:"prixMax,omitempty"`
	Conditions     []string `json:"etatsAcceptes,omitempty"`
	PremiumOnly    bool     `json:"uniquementPremium,omitempty"`
	UrgentOnly     bool     `json:"uniquementUrgent,omitempty"`
	StorefrontOnly bool     `json:"uniquementBoutiques,omitempty"`
	Page           int      `json:"page"`
	Size           int      `json:"size"`
	SortBy         string   `json:"sortBy,omitempty"`
	SortDirection  string   `json:"sortDirection,omitempty"`
}

// Значения по умолчанию для поиска
const (
	DefaultPageSize      = 20
	DefaultSortBy        = "dateCreation"
	DefaultSortDirection = "DESC"
)

// WithDefaults возвращает копию фильтра с заполненными значениями по умолчанию
func (f SearchFilter) WithDefaults() SearchFilter {
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Page < 0 {
		f.Page = 0
	}
	if f.SortBy == "" {
		f.SortBy = DefaultSortBy
	}
	if f.SortDirection == "" {
		f.SortDirection = DefaultSortDirection
	}
	return f
}

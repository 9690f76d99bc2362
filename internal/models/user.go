package models

// Profile представляет профиль пользователя, возвращаемый сервером
type Profile struct {
	ID             int64     `json:"id"`                    // ID пользователя
	DisplayName    string    `json:"nom"`                   // отображаемое имя
	PhoneNumber    string    `json:"telephone"`             // нормализованный номер (237XXXXXXXXX)
	Email          string    `json:"email,omitempty"`       // email, необязательный
	City           string    `json:"ville,omitempty"`       // город
	District       string    `json:"quartier,omitempty"`    // квартал
	IsStorefront   bool      `json:"isBoutique"`            // профессиональный магазин
	StorefrontName string    `json:"nomBoutique,omitempty"` // название магазина
	CurrentPlan    string    `json:"planActuel,omitempty"`  // текущий тариф (GRATUIT, ...)
	CreatedAt      Timestamp `json:"dateCreation"`          // дата регистрации
	IsActive       bool      `json:"isActive"`              // активен ли аккаунт
}

// CredentialPair представляет пару токенов, выдаваемую при login/register/refresh
type CredentialPair struct {
	AccessToken       string `json:"access_token"`        // короткоживущий bearer токен
	RefreshToken      string `json:"refresh_token"`       // долгоживущий токен для обновления пары
	TokenKind         string `json:"token_kind"`          // обычно "Bearer"
	AccessTTLSeconds  int64  `json:"access_ttl_seconds"`  // время жизни access token
	RefreshTTLSeconds int64  `json:"refresh_ttl_seconds"` // время жизни refresh token
}

// Complete сообщает, что в паре есть оба токена
func (p *CredentialPair) Complete() bool {
	return p != nil && p.AccessToken != "" && p.RefreshToken != ""
}

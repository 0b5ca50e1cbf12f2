package models

// DisguiseProduct is a fake storefront item shown while disguise mode is
// active. Purely presentational data, it exists so the storefront looks
// populated and editable like a real shop.
type DisguiseProduct struct {
	UUIDBaseModel
	UserID      uint    `json:"user_id" gorm:"not null;index"`
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

var seedProducts = []DisguiseProduct{
	{Name: "Batom Matte Rosé", Price: 29.90, Description: "Longa duração"},
	{Name: "Base Líquida Natural", Price: 49.90, Description: "Cobertura média"},
	{Name: "Máscara de Cílios", Price: 35.50, Description: "Efeito volume"},
	{Name: "Paleta de Sombras", Price: 89.90, Description: "12 cores"},
}

func ProductsForUser(userID uint) ([]DisguiseProduct, error) {
	products := []DisguiseProduct{}
	err := db.Order("created_at").Find(&products, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	return products, nil
}

// InitializeProductsForUser seeds the default catalog the first time a user
// opens the storefront. A no-op when the user already has products.
func InitializeProductsForUser(userID uint) ([]DisguiseProduct, error) {
	existing, err := ProductsForUser(userID)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		return existing, nil
	}

	products := make([]DisguiseProduct, len(seedProducts))
	copy(products, seedProducts)
	for i := range products {
		products[i].UserID = userID
	}

	if err := db.Create(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func CreateProduct(product *DisguiseProduct) error {
	return db.Create(product).Error
}

func UpdateProduct(id string, userID uint, data map[string]interface{}) error {
	return db.Model(&DisguiseProduct{}).
		Where("id = ? AND user_id = ?", id, userID).
		Select("name", "price", "description", "image_url").
		Updates(data).Error
}

func DeleteProduct(id string, userID uint) error {
	return db.Where("user_id = ?", userID).Delete(&DisguiseProduct{}, "id = ?", id).Error
}

package seed

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
)

// SeedAdminUser creates the bootstrap admin account if it does not exist.
func SeedAdminUser(db *gorm.DB, email, password string) {
	if email == "" || password == "" {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing admin password: %v", err)
		return
	}

	admin := model.User{
		Email:    email,
		Password: string(hashed),
		Username: "admin",
		IsAdmin:  true,
	}

	result := db.FirstOrCreate(&admin, model.User{Email: email})
	if result.Error != nil {
		log.Printf("Error creating admin user: %v", result.Error)
		return
	}

	log.Println("Admin user seeded successfully!")
}

// SeedPromoCodes creates a couple of demo partner codes for development.
func SeedPromoCodes(db *gorm.DB) {
	maxUses := 100
	codes := []model.PromoCode{
		{
			Code:          "reefbuilders",
			PartnerName:   "Reef Builders",
			PartnerEmail:  "partners@reefbuilders.example",
			DiscountType:  model.DiscountTypePercent,
			DiscountValue: 10,
			MaxUses:       &maxUses,
			Active:        true,
		},
		{
			Code:          "coralclub",
			PartnerName:   "Coral Club",
			PartnerEmail:  "hello@coralclub.example",
			DiscountType:  model.DiscountTypePercent,
			DiscountValue: 15,
			Active:        true,
		},
	}

	for _, code := range codes {
		result := db.FirstOrCreate(&code, model.PromoCode{Code: code.Code})
		if result.Error != nil {
			log.Printf("Error creating promo code %s: %v", code.Code, result.Error)
		}
	}

	log.Println("Promo codes seeded successfully!")
}

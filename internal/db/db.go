package db

import (
	"campuslink/internal/models"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=campuslink port=5432 sslmode=disable"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedColleges()
	seedAdmin()
}

// Migrate 建表，测试环境用 sqlite 时也走这里
func Migrate(d *gorm.DB) error {
	return d.AutoMigrate(
		&models.College{},
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.HelpfulMark{},
		&models.Notification{},
		&models.Report{},
	)
}

func seedColleges() {
	// 已有学校数据则跳过
	var count int64
	DB.Model(&models.College{}).Count(&count)
	if count > 0 {
		log.Println("Colleges already seeded, skipping")
		return
	}

	colleges := []models.College{
		{Name: "State Institute of Technology", EmailDomain: "sit.edu", City: "Pune", State: "Maharashtra", Country: "India", IsActive: true},
		{Name: "Central University", EmailDomain: "centraluni.edu", City: "Delhi", State: "Delhi", Country: "India", IsActive: true},
	}

	for _, college := range colleges {
		if err := DB.Create(&college).Error; err != nil {
			log.Printf("Failed to create college %s: %v", college.Name, err)
		}
	}
	log.Println("Initial colleges created successfully")
}

// seedAdmin 按环境变量创建初始管理员，缺省不创建
func seedAdmin() {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int64
	DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}

	// 管理员也要挂在某个学校下，取种子里的第一所
	var college models.College
	if err := DB.Order("id ASC").First(&college).Error; err != nil {
		log.Printf("Failed to seed admin: no college available: %v", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to seed admin: %v", err)
		return
	}

	admin := models.User{
		Name:       "Admin",
		Email:      email,
		Password:   string(hash),
		CollegeID:  college.ID,
		Role:       models.RoleAdmin,
		Department: "Administration",
		IsActive:   true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to seed admin: %v", err)
		return
	}
	log.Println("Initial admin user created")
}

package cmsfixture

import (
	"fmt"

	"gorm.io/gorm"
)

type CmsUser struct {
	ID       int64 `gorm:"primaryKey"`
	Status   string
	Username string `gorm:"uniqueIndex"`
	Name     string
	EmailID  *int64
}

func (CmsUser) TableName() string { return "cms_users" }

type CmsEmail struct {
	ID    int64 `gorm:"primaryKey"`
	Email string
}

func (CmsEmail) TableName() string { return "cms_emails" }

type CmsGroup struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func (CmsGroup) TableName() string { return "cms_groups" }

type CmsUserGroup struct {
	UserID  int64 `gorm:"primaryKey;autoIncrement:false"`
	GroupID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (CmsUserGroup) TableName() string { return "cms_users_groups" }

type CmsArticle struct {
	ID      int64 `gorm:"primaryKey"`
	UserID  int64 `gorm:"index"`
	Topic   string
	Text    string
	Version int
}

func (CmsArticle) TableName() string { return "cms_articles" }

type Company struct {
	ID          int64  `gorm:"primaryKey"`
	CompanyName string `gorm:"column:company_name"`
	LogoID      *int64
}

func (Company) TableName() string { return "companies" }

type Logo struct {
	ID          int64 `gorm:"primaryKey"`
	Image       string
	ImageWidth  int
	ImageHeight int
}

func (Logo) TableName() string { return "logos" }

type Department struct {
	ID        int64 `gorm:"primaryKey"`
	CompanyID int64 `gorm:"index"`
	Name      string
}

func (Department) TableName() string { return "departments" }

// Migrate creates the fixture tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&CmsEmail{}, &CmsUser{}, &CmsGroup{}, &CmsUserGroup{}, &CmsArticle{},
		&Logo{}, &Company{}, &Department{},
	)
	if err != nil {
		return fmt.Errorf("cannot migrate fixture schema: %w", err)
	}

	return nil
}

// Seed inserts:
//   - 3 groups and 9 users "username0".."username8", every user in every
//     group and with one email;
//   - i+1 articles for user i, versions 0..i;
//   - 9 companies "name0".."name8", each with a logo and 3 departments
//     "name<i>0".."name<i>2".
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		groups := make([]CmsGroup, 0, 3)
		for i := range 3 {
			groups = append(groups, CmsGroup{ID: int64(i + 1), Name: fmt.Sprintf("group%d", i)})
		}
		if err := tx.Create(&groups).Error; err != nil {
			return err
		}

		articleID := int64(1)
		for i := range 9 {
			id := int64(i + 1)

			email := CmsEmail{ID: id, Email: fmt.Sprintf("username%d@example.com", i)}
			if err := tx.Create(&email).Error; err != nil {
				return err
			}

			user := CmsUser{
				ID:       id,
				Status:   "active",
				Username: fmt.Sprintf("username%d", i),
				Name:     fmt.Sprintf("name%d", i),
				EmailID:  &email.ID,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}

			for _, g := range groups {
				if err := tx.Create(&CmsUserGroup{UserID: id, GroupID: g.ID}).Error; err != nil {
					return err
				}
			}

			for j := range i + 1 {
				article := CmsArticle{
					ID:      articleID,
					UserID:  id,
					Topic:   fmt.Sprintf("topic%d%d", i, j),
					Text:    fmt.Sprintf("text%d%d", i, j),
					Version: j,
				}
				if err := tx.Create(&article).Error; err != nil {
					return err
				}
				articleID++
			}

			logo := Logo{ID: id, Image: fmt.Sprintf("image%d", i), ImageWidth: 100 + i, ImageHeight: 100 + i}
			if err := tx.Create(&logo).Error; err != nil {
				return err
			}

			company := Company{ID: id, CompanyName: fmt.Sprintf("name%d", i), LogoID: &logo.ID}
			if err := tx.Create(&company).Error; err != nil {
				return err
			}

			for j := range 3 {
				department := Department{
					ID:        id*10 + int64(j),
					CompanyID: id,
					Name:      fmt.Sprintf("name%d%d", i, j),
				}
				if err := tx.Create(&department).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

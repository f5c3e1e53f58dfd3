package config

import (
	"errors"
	"log"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/domain"

	"gorm.io/gorm"
)

// SeedMasterData seeds the initial campus, locations, categories and library shelves.
// Existing rows (matched by code) are left untouched.
func SeedMasterData(db *gorm.DB) error {
	campus := &models.Campus{Code: "MAIN", Name: "วิทยาเขตหลัก", IsActive: true}
	if err := seedByCode(db, "campus", campus.Code, campus); err != nil {
		return err
	}

	if err := seedLocations(db, campus.ID); err != nil {
		return err
	}

	if err := seedCategories(db); err != nil {
		return err
	}

	if err := seedLibrary(db, campus.ID); err != nil {
		return err
	}

	log.Println("✅ Master data seeded successfully")
	return nil
}

// seedByCode loads the row with code into record, creating it when missing
func seedByCode(db *gorm.DB, kind, code string, record interface{}) error {
	err := db.Where("code = ?", code).First(record).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := db.Create(record).Error; err != nil {
		return err
	}
	log.Printf("   Created %s: %s", kind, code)
	return nil
}

func seedLocations(db *gorm.DB, campusID uint) error {
	building := &models.Building{CampusID: campusID, Code: "B1", Name: "อาคาร 1"}
	if err := seedByCode(db, "building", building.Code, building); err != nil {
		return err
	}

	departments := []*models.Department{
		{CampusID: &campusID, Code: "STORE", Name: "งานพัสดุ", IsHolding: true},
		{CampusID: &campusID, Code: "SCI", Name: "กลุ่มสาระวิทยาศาสตร์"},
		{CampusID: &campusID, Code: "MATH", Name: "กลุ่มสาระคณิตศาสตร์"},
		{CampusID: &campusID, Code: "LIB", Name: "ห้องสมุด"},
	}
	for _, d := range departments {
		if err := seedByCode(db, "department", d.Code, d); err != nil {
			return err
		}
	}

	rooms := []*models.Room{
		{BuildingID: building.ID, DepartmentID: &departments[0].ID, Code: "B1-101", Name: "ห้องพัสดุ"},
		{BuildingID: building.ID, DepartmentID: &departments[1].ID, Code: "B1-201", Name: "ห้องปฏิบัติการวิทยาศาสตร์"},
		{BuildingID: building.ID, DepartmentID: &departments[2].ID, Code: "B1-202", Name: "ห้องคณิตศาสตร์"},
		{BuildingID: building.ID, DepartmentID: &departments[3].ID, Code: "B1-301", Name: "ห้องสมุด"},
	}
	for _, r := range rooms {
		if err := seedByCode(db, "room", r.Code, r); err != nil {
			return err
		}
	}
	return nil
}

func seedCategories(db *gorm.DB) error {
	parents := []*models.AssetCategory{
		{Code: "IT", Name: "ครุภัณฑ์คอมพิวเตอร์"},
		{Code: "SCI", Name: "ครุภัณฑ์วิทยาศาสตร์"},
		{Code: "FUR", Name: "ครุภัณฑ์สำนักงาน"},
	}
	for _, p := range parents {
		if err := seedByCode(db, "asset_category", p.Code, p); err != nil {
			return err
		}
	}

	children := []*models.AssetCategory{
		{ParentID: &parents[0].ID, Code: "IT-NB", Name: "คอมพิวเตอร์โน้ตบุ๊ก"},
		{ParentID: &parents[0].ID, Code: "IT-PJ", Name: "เครื่องฉายภาพ"},
		{ParentID: &parents[1].ID, Code: "SCI-MS", Name: "กล้องจุลทรรศน์"},
	}
	for _, c := range children {
		if err := seedByCode(db, "asset_category", c.Code, c); err != nil {
			return err
		}
	}
	return nil
}

func seedLibrary(db *gorm.DB, campusID uint) error {
	bookcase := &models.Bookcase{CampusID: &campusID, Code: "BC-A", Name: "ตู้ A"}
	if err := seedByCode(db, "bookcase", bookcase.Code, bookcase); err != nil {
		return err
	}

	var shelf models.Shelf
	err := db.Where(models.Shelf{BookcaseID: bookcase.ID, Code: "A1"}).FirstOrCreate(&shelf).Error
	if err != nil {
		return err
	}

	books := []models.Book{
		{Title: "ฟิสิกส์ ม.4 เล่ม 1", Author: "สสวท.", ISBN: "9786163628077", Type: string(domain.BookPhysical), IsAvailable: true},
		{Title: "คณิตศาสตร์พื้นฐาน ม.1", Author: "สสวท.", ISBN: "9786163627346", Type: string(domain.BookPhysical), IsAvailable: true},
		{Title: "พจนานุกรมฉบับราชบัณฑิตยสถาน", Author: "ราชบัณฑิตยสถาน", ISBN: "9786163890027", Type: string(domain.BookEbook)},
	}
	for _, b := range books {
		var count int64
		if err := db.Model(&models.Book{}).Where("isbn = ?", b.ISBN).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		b.CampusID = &campusID
		b.BookcaseID = &bookcase.ID
		b.ShelfID = &shelf.ID
		if err := db.Create(&b).Error; err != nil {
			return err
		}
		log.Printf("   Created book: %s", b.Title)
	}
	return nil
}

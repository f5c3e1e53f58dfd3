// Package testutil opens throwaway databases for service and handler tests.
package testutil

import (
	"path/filepath"
	"testing"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite database in a temp dir. The pool is limited to one
// connection, so concurrent transactions run one after another. SQLite drops the
// FOR UPDATE clause, which means concurrency tests on this database check the
// check-then-write logic inside each transaction, not the row locks themselves.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "schoolhub.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// Fixtures is the master data every test database starts with
type Fixtures struct {
	Campus    *models.Campus
	Building  *models.Building
	Store     *models.Department // holding department
	Science   *models.Department
	Library   *models.Department
	StoreRoom *models.Room
	Lab101    *models.Room
	Lab102    *models.Room
	Category  *models.AssetCategory

	Admin     *models.User
	Staff     *models.User
	Librarian *models.User
	Member    *models.User
	Teacher   *models.User

	PhysicalBook *models.Book
	SecondBook   *models.Book
	Ebook        *models.Book
}

// Seed inserts the default fixtures
func Seed(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{}

	f.Campus = &models.Campus{Code: "MAIN", Name: "Main Campus", IsActive: true}
	create(t, db, f.Campus)

	f.Building = &models.Building{CampusID: f.Campus.ID, Code: "B1", Name: "Building 1"}
	create(t, db, f.Building)

	f.Store = &models.Department{CampusID: &f.Campus.ID, Code: "STORE", Name: "Central Store", IsHolding: true}
	f.Science = &models.Department{CampusID: &f.Campus.ID, Code: "SCI", Name: "Science"}
	f.Library = &models.Department{CampusID: &f.Campus.ID, Code: "LIB", Name: "Library"}
	create(t, db, f.Store)
	create(t, db, f.Science)
	create(t, db, f.Library)

	f.StoreRoom = &models.Room{BuildingID: f.Building.ID, DepartmentID: &f.Store.ID, Code: "B1-001", Name: "Store Room"}
	f.Lab101 = &models.Room{BuildingID: f.Building.ID, DepartmentID: &f.Science.ID, Code: "B1-101", Name: "Lab 101"}
	f.Lab102 = &models.Room{BuildingID: f.Building.ID, DepartmentID: &f.Science.ID, Code: "B1-102", Name: "Lab 102"}
	create(t, db, f.StoreRoom)
	create(t, db, f.Lab101)
	create(t, db, f.Lab102)

	f.Category = &models.AssetCategory{Code: "COMP", Name: "Computers"}
	create(t, db, f.Category)

	f.Admin = user(t, db, "admin", domain.RoleAdmin, &f.Campus.ID)
	f.Staff = user(t, db, "staff", domain.RoleStaff, &f.Campus.ID)
	f.Librarian = user(t, db, "librarian", domain.RoleLibrarian, &f.Campus.ID)
	f.Member = user(t, db, "member", domain.RoleMember, &f.Campus.ID)
	f.Teacher = user(t, db, "teacher", domain.RoleMember, &f.Campus.ID)

	f.PhysicalBook = &models.Book{Title: "The Go Programming Language", Author: "Donovan", Type: string(domain.BookPhysical), IsAvailable: true, CampusID: &f.Campus.ID}
	f.SecondBook = &models.Book{Title: "Database Internals", Author: "Petrov", Type: string(domain.BookPhysical), IsAvailable: true, CampusID: &f.Campus.ID}
	f.Ebook = &models.Book{Title: "Digital Atlas", Type: string(domain.BookEbook), IsAvailable: true, CampusID: &f.Campus.ID}
	create(t, db, f.PhysicalBook)
	create(t, db, f.SecondBook)
	create(t, db, f.Ebook)

	return f
}

// Password is the plain password of every fixture user
const Password = "password123"

func user(t *testing.T, db *gorm.DB, username string, role domain.Role, campusID *uint) *models.User {
	t.Helper()

	// minimum cost keeps fixtures fast
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Username: username,
		Email:    username + "@school.test",
		Password: string(hash),
		FullName: username,
		Role:     string(role),
		CampusID: campusID,
		IsActive: true,
	}
	create(t, db, u)
	return u
}

func create(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	require.NoError(t, db.Create(value).Error)
}

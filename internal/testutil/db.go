package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/database"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the schema migrated.
// The database lives as long as its single pooled connection.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateTestUser inserts an active user
func CreateTestUser(t *testing.T, db *gorm.DB, email string, role domain.UserRole) *domain.User {
	t.Helper()

	user := &domain.User{
		Email:    email,
		Name:     "User " + email,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestLead inserts an open lead owned by owner
func CreateTestLead(t *testing.T, db *gorm.DB, owner string, mutate ...func(*domain.Lead)) *domain.Lead {
	t.Helper()

	lead := &domain.Lead{
		Name:        "Test Lead",
		CompanyName: "Acme Pvt Ltd",
		Email:       "buyer@acme.example",
		LeadOwner:   owner,
		Source:      domain.LeadSourceWebsite,
		BudgetRange: domain.Budget1To5L,
		Stage:       domain.LeadStageNew,
		Status:      domain.LeadStatusOpen,
	}
	for _, m := range mutate {
		m(lead)
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

// CreateTestActivity inserts an activity for lead at the given time
func CreateTestActivity(t *testing.T, db *gorm.DB, leadID uuid.UUID, outcome domain.ActivityOutcome, at time.Time) *domain.Activity {
	t.Helper()

	activity := &domain.Activity{
		LeadID:    leadID,
		Type:      domain.ActivityTypeCall,
		Outcome:   outcome,
		DateTime:  at,
		CreatedBy: "sales@example.com",
	}
	require.NoError(t, db.Create(activity).Error)
	return activity
}

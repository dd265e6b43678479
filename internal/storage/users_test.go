package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type UserTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func (suite *UserTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

func (suite *UserTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *UserTestSuite) TestCreateUser() {
	user, err := suite.db.CreateUser(suite.ctx, "alice", "alice@example.com", "hash")
	require.NoError(suite.T(), err)
	assert.Positive(suite.T(), user.ID)
	assert.Equal(suite.T(), "alice", user.Username)
	assert.Equal(suite.T(), "alice@example.com", user.Email)
	assert.Equal(suite.T(), "hash", user.PasswordHash)
	assert.False(suite.T(), user.IsPremium)
	assert.Equal(suite.T(), "inactive", user.SubscriptionStatus)

	byName, err := suite.db.GetUserByUsername(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byName.ID)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *UserTestSuite) TestCreateUserSeedsDefaultCategories() {
	user, err := suite.db.CreateUser(suite.ctx, "bob", "", "hash")
	require.NoError(suite.T(), err)

	categories, err := suite.db.ListCategories(suite.ctx, user.ID)
	require.NoError(suite.T(), err)

	colors := map[string]string{}
	for _, c := range categories {
		colors[c.Name] = c.Color
		assert.Nil(suite.T(), c.BudgetLimit)
	}
	assert.Equal(suite.T(), map[string]string{
		"Food":          "#4361ee",
		"Transport":     "#3a0ca3",
		"Entertainment": "#f72585",
		"Utilities":     "#4cc9f0",
		"Rent":          "#ffd166",
		"Healthcare":    "#06d6a0",
		"Other":         "#6c757d",
	}, colors)

	// Seeding again is harmless.
	require.NoError(suite.T(), suite.db.SeedDefaultCategories(suite.ctx, user.ID))
	again, err := suite.db.ListCategories(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), again, len(categories))
}

func (suite *UserTestSuite) TestCreateUserDuplicate() {
	_, err := suite.db.CreateUser(suite.ctx, "carol", "", "hash")
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser(suite.ctx, "carol", "", "hash")
	assert.ErrorIs(suite.T(), err, ErrDuplicate)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count, "failed insert must roll back")
}

func (suite *UserTestSuite) TestCreateUserRequiresName() {
	_, err := suite.db.CreateUser(suite.ctx, "  ", "", "hash")
	assert.Error(suite.T(), err)
}

func (suite *UserTestSuite) TestGetUserNotFound() {
	_, err := suite.db.GetUserByID(suite.ctx, 99)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetUserByUsername(suite.ctx, "nobody")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *UserTestSuite) TestActivateSubscription() {
	user, err := suite.db.CreateUser(suite.ctx, "dave", "", "hash")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.ActivateSubscription(suite.ctx, user.ID, "sub_123"))

	got, err := suite.db.GetUserByID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.IsPremium)
	assert.Equal(suite.T(), "active", got.SubscriptionStatus)

	assert.ErrorIs(suite.T(), suite.db.ActivateSubscription(suite.ctx, 999, "sub_x"), ErrNotFound)
}

func TestUserSuite(t *testing.T) {
	suite.Run(t, new(UserTestSuite))
}

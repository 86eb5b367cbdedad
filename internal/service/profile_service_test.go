package service

import (
	"context"
	"errors"
	"testing"

	"profileapi/internal/models"
	"profileapi/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x1234567890abcdef1234567890abcdef12345678"

// userRepoStub lets each test override only the calls it cares about.
type userRepoStub struct {
	existsBySlugFn   func(ctx context.Context, slug string) (bool, error)
	getByAddressFn   func(ctx context.Context, address string) (*models.User, error)
	getByAddressesFn func(ctx context.Context, addresses []string) ([]models.User, error)
	createFn         func(ctx context.Context, user *models.User) error
	updateUsernameFn func(ctx context.Context, address, username, slug string) (*models.User, error)
	listFn           func(ctx context.Context, limit, offset int) ([]models.User, error)
	countFn          func(ctx context.Context) (int64, error)

	getByAddressCalls int
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		existsBySlugFn: func(context.Context, string) (bool, error) { return false, nil },
		getByAddressFn: func(_ context.Context, address string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", address)
		},
		getByAddressesFn: func(context.Context, []string) ([]models.User, error) { return nil, nil },
		createFn:         func(context.Context, *models.User) error { return nil },
		updateUsernameFn: func(_ context.Context, address, username, slug string) (*models.User, error) {
			return &models.User{Address: address, Username: username, Slug: slug}, nil
		},
		listFn:  func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		countFn: func(context.Context) (int64, error) { return 0, nil },
	}
}

func (s *userRepoStub) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return s.existsBySlugFn(ctx, slug)
}

func (s *userRepoStub) GetByAddress(ctx context.Context, address string) (*models.User, error) {
	s.getByAddressCalls++
	return s.getByAddressFn(ctx, address)
}

func (s *userRepoStub) GetBySlug(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (s *userRepoStub) GetByAddresses(ctx context.Context, addresses []string) ([]models.User, error) {
	return s.getByAddressesFn(ctx, addresses)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) UpdateUsername(ctx context.Context, address, username, slug string) (*models.User, error) {
	return s.updateUsernameFn(ctx, address, username, slug)
}

func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestProfileService_ValidateUsername(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.existsBySlugFn = func(_ context.Context, slug string) (bool, error) {
		return slug == "alice", nil
	}
	svc := NewProfileService(repo, validation.NewDenylist("admin"), nil)

	res, err := svc.ValidateUsername(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, validation.Result{Message: validation.MsgTaken}, res)

	res, err = svc.ValidateUsername(context.Background(), "Bob123")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	repo.existsBySlugFn = func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	}
	_, err = svc.ValidateUsername(context.Background(), "Carol")
	assert.Error(t, err)
}

func TestProfileService_Register(t *testing.T) {
	t.Parallel()

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(noopUserRepo(), validation.NewDenylist(), nil)
		_, err := svc.Register(context.Background(), RegisterInput{Address: "0x12", Username: "alice"})
		assertAppErrorCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("invalid username carries rule message", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(noopUserRepo(), validation.NewDenylist(), nil)
		_, err := svc.Register(context.Background(), RegisterInput{Address: testAddress, Username: "a b"})
		assertAppErrorCode(t, err, "VALIDATION_ERROR")
		assert.Contains(t, err.Error(), validation.MsgCharacters)
	})

	t.Run("address already registered", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByAddressFn = func(_ context.Context, address string) (*models.User, error) {
			return &models.User{Address: address}, nil
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)
		_, err := svc.Register(context.Background(), RegisterInput{Address: testAddress, Username: "alice"})
		assert.ErrorIs(t, err, models.ErrAddressRegistered)
	})

	t.Run("lookup failure is internal", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.existsBySlugFn = func(context.Context, string) (bool, error) {
			return false, errors.New("db down")
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)
		_, err := svc.Register(context.Background(), RegisterInput{Address: testAddress, Username: "alice"})
		assertAppErrorCode(t, err, "INTERNAL_ERROR")
	})

	t.Run("success normalizes address and slug", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var created *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			created = u
			return nil
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)
		user, err := svc.Register(context.Background(), RegisterInput{
			Address:  "0x1234567890ABCDEF1234567890abcdef12345678",
			Username: "Alice",
			TeamID:   2,
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, testAddress, user.Address)
		assert.Equal(t, "alice", user.Slug)
		assert.Equal(t, "Alice", user.Username)
		assert.Equal(t, uint(2), user.TeamID)
	})

	t.Run("storage conflict passes through", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			return models.NewConflictError("Username taken", models.ErrUsernameTaken)
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)
		_, err := svc.Register(context.Background(), RegisterInput{Address: testAddress, Username: "alice"})
		assert.ErrorIs(t, err, models.ErrUsernameTaken)
	})
}

func TestProfileService_GetProfile_Cache(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := noopUserRepo()
	repo.getByAddressFn = func(_ context.Context, address string) (*models.User, error) {
		return &models.User{Address: address, Username: "Alice"}, nil
	}
	svc := NewProfileService(repo, validation.NewDenylist(), rdb)
	ctx := context.Background()

	user, err := svc.GetProfile(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Username)

	user, err = svc.GetProfile(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Username)
	assert.Equal(t, 1, repo.getByAddressCalls)

	_, err = svc.ChangeUsername(ctx, testAddress, "Alicia")
	require.NoError(t, err)
	assert.False(t, mr.Exists("profile:"+testAddress))
}

func TestProfileService_ChangeUsername(t *testing.T) {
	t.Parallel()

	t.Run("denylisted", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(noopUserRepo(), validation.NewDenylist("admin"), nil)
		_, err := svc.ChangeUsername(context.Background(), testAddress, "TheAdmin")
		assertAppErrorCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("passes slug to repository", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByAddressFn = func(_ context.Context, address string) (*models.User, error) {
			return &models.User{Address: address, Username: "OldName", Slug: "oldname"}, nil
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)
		user, err := svc.ChangeUsername(context.Background(), testAddress, "NewName")
		require.NoError(t, err)
		assert.Equal(t, "newname", user.Slug)
	})

	t.Run("case change of own name skips taken check", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByAddressFn = func(_ context.Context, address string) (*models.User, error) {
			return &models.User{Address: address, Username: "Alice", Slug: "alice"}, nil
		}
		repo.existsBySlugFn = func(_ context.Context, slug string) (bool, error) {
			return slug == "alice", nil
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)

		user, err := svc.ChangeUsername(context.Background(), testAddress, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, "ALICE", user.Username)
		assert.Equal(t, "alice", user.Slug)
	})

	t.Run("another user's name is taken", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByAddressFn = func(_ context.Context, address string) (*models.User, error) {
			return &models.User{Address: address, Username: "Alice", Slug: "alice"}, nil
		}
		repo.existsBySlugFn = func(_ context.Context, slug string) (bool, error) {
			return slug == "bob", nil
		}
		svc := NewProfileService(repo, validation.NewDenylist(), nil)

		_, err := svc.ChangeUsername(context.Background(), testAddress, "Bob")
		assertAppErrorCode(t, err, "VALIDATION_ERROR")
		assert.EqualError(t, err, validation.MsgTaken)
	})

	t.Run("unknown profile", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(noopUserRepo(), validation.NewDenylist(), nil)
		_, err := svc.ChangeUsername(context.Background(), testAddress, "NewName")
		assertAppErrorCode(t, err, "NOT_FOUND")
	})
}

func TestProfileService_ListProfiles(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.listFn = func(_ context.Context, limit, offset int) ([]models.User, error) {
		assert.Equal(t, 10, limit)
		assert.Equal(t, 20, offset)
		return []models.User{{Username: "a"}}, nil
	}
	repo.countFn = func(context.Context) (int64, error) { return 21, nil }

	svc := NewProfileService(repo, validation.NewDenylist(), nil)
	users, total, err := svc.ListProfiles(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, int64(21), total)
}

func TestProfileService_UsernamesByAddress(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByAddressesFn = func(context.Context, []string) ([]models.User, error) {
		return []models.User{{Address: "0x01", Username: "Alice"}}, nil
	}
	svc := NewProfileService(repo, validation.NewDenylist(), nil)
	names, err := svc.UsernamesByAddress(context.Background(), []string{"0x01", "0x02"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"0x01": "Alice"}, names)
}

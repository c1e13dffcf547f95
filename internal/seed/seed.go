// Package seed loads development fixtures on startup so a fresh
// database has accounts and rooms to work with.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

type userRepository interface {
	CountUsers(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) error
}

type roomRepository interface {
	Create(ctx context.Context, room *models.Room) error
}

// Seeder inserts fixture users and rooms into an empty database.
type Seeder struct {
	users  userRepository
	rooms  roomRepository
	logger *zap.Logger
}

// New constructs a Seeder.
func New(users userRepository, rooms roomRepository, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, rooms: rooms, logger: logger}
}

// Run seeds fixtures when the users table is empty. Re-running against a
// populated database is a no-op, so the seeder is safe to leave enabled
// in development.
func (s *Seeder) Run(ctx context.Context) error {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed: count users: %w", err)
	}
	if count > 0 {
		s.logger.Debug("seed skipped, users already exist", zap.Int("count", count))
		return nil
	}

	if err := s.seedUsers(ctx); err != nil {
		return err
	}
	if err := s.seedRooms(ctx); err != nil {
		return err
	}

	s.logger.Info("seed data loaded")
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("ChangeMe123!"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}

	studying := models.AcademicStatusStudying
	studentID := "2174802010"
	class := "K27-CNTT1"
	faculty := "Cong nghe thong tin"

	users := []models.User{
		{
			Email:        "admin@vanlanguni.vn",
			PasswordHash: string(hash),
			FullName:     "Quan Tri Vien",
			PhoneNumber:  "0901000001",
			Role:         models.RoleAdmin,
			Active:       true,
		},
		{
			Email:        "manager@vanlanguni.vn",
			PasswordHash: string(hash),
			FullName:     "Quan Ly Ky Tuc Xa",
			PhoneNumber:  "0901000002",
			Role:         models.RoleManager,
			Active:       true,
		},
		{
			Email:          "sinhvien@vlu.edu.vn",
			PasswordHash:   string(hash),
			FullName:       "Nguyen Van Sinh",
			PhoneNumber:    "0901000003",
			Role:           models.RoleStudent,
			Active:         true,
			StudentID:      &studentID,
			Class:          &class,
			Faculty:        &faculty,
			AcademicStatus: &studying,
		},
	}

	for i := range users {
		if err := s.users.Create(ctx, &users[i]); err != nil {
			return fmt.Errorf("seed: create user %s: %w", users[i].Email, err)
		}
	}
	return nil
}

func (s *Seeder) seedRooms(ctx context.Context) error {
	rooms := []models.Room{
		{
			RoomNumber:       "A101",
			Building:         "A",
			Floor:            1,
			Type:             models.RoomTypeStandard,
			Capacity:         8,
			PricePerSemester: 2000000,
			Amenities:        []string{"wifi", "fan"},
			Status:           models.RoomStatusAvailable,
		},
		{
			RoomNumber:       "A102",
			Building:         "A",
			Floor:            1,
			Type:             models.RoomTypeStandard,
			Capacity:         8,
			PricePerSemester: 2000000,
			Amenities:        []string{"wifi", "fan"},
			Status:           models.RoomStatusAvailable,
		},
		{
			RoomNumber:       "B201",
			Building:         "B",
			Floor:            2,
			Type:             models.RoomTypeVIP,
			Capacity:         4,
			PricePerSemester: 4500000,
			Amenities:        []string{"wifi", "air_conditioner", "water_heater"},
			Status:           models.RoomStatusAvailable,
		},
		{
			RoomNumber:       "C301",
			Building:         "C",
			Floor:            3,
			Type:             models.RoomTypeDeluxe,
			Capacity:         2,
			PricePerSemester: 7000000,
			Amenities:        []string{"wifi", "air_conditioner", "water_heater", "private_bathroom"},
			Status:           models.RoomStatusAvailable,
		},
	}

	for i := range rooms {
		if err := s.rooms.Create(ctx, &rooms[i]); err != nil {
			return fmt.Errorf("seed: create room %s: %w", rooms[i].RoomNumber, err)
		}
	}
	return nil
}

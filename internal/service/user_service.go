package service

import (
	"context"
	"time"

	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/repo"
)

type UserService struct {
	users *repo.UserRepo
}

func NewUserService(users *repo.UserRepo) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

type ProfileUpdate struct {
	Name           string `json:"name"`
	StudyType      string `json:"study_type"`
	CareerInterest string `json:"career_interest"`
	Nationality    string `json:"nationality"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = update.Name
	user.StudyType = update.StudyType
	user.CareerInterest = update.CareerInterest
	user.Nationality = update.Nationality
	user.Mtime = time.Now().UnixMilli()
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

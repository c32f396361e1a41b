package server

import (
	"counsellor/internal/domain"
	"counsellor/internal/engine"
)

type SignupRequest struct {
	Name     string `json:"name" example:"Asha Rao"`
	Email    string `json:"email" example:"asha@example.com"`
	Password string `json:"password" example:"hunter2hunter2"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ChatRequest struct {
	Message string `json:"message" example:"lock my latest shortlisted school"`
}

type ChatResponse struct {
	Reply    string                `json:"reply"`
	Actions  []engine.ActionResult `json:"actions"`
	Snapshot domain.StageSnapshot  `json:"snapshot"`
}

type HistoryResponse struct {
	Messages []domain.ConversationTurn `json:"messages"`
}

type ShortlistRequest struct {
	UniversityID string `json:"universityId" format:"uuid"`
}

type GenerateTasksResponse struct {
	Created int    `json:"created"`
	Message string `json:"message"`
}

type StageResponse struct {
	Stage int `json:"stage"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func chatResponse(r engine.ChatResult) ChatResponse {
	return ChatResponse{Reply: r.Reply, Actions: r.Actions, Snapshot: r.Snapshot}
}

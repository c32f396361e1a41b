package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"counsellor/internal/domain"
	"counsellor/internal/engine"
)

func registerChat(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/ai/chat",
		Summary:     "Send a chat message",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body ChatRequest `json:"body"`
	}) (*struct {
		Body ChatResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.Message) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "message is required", nil)
		}
		res, err := e.Chat(ctx, userID, input.Body.Message)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChatResponse `json:"body"`
		}{Body: chatResponse(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "chat-history",
		Method:      http.MethodGet,
		Path:        "/ai/history",
		Summary:     "Conversation history",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HistoryResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		turns, err := e.History(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body HistoryResponse `json:"body"`
		}{Body: HistoryResponse{Messages: turns}}, nil
	})
}

func registerProfile(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profile",
		Summary:     "Get profile",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetOrCreateProfile(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPut,
		Path:        "/profile",
		Summary:     "Update profile answers",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body engine.ProfileUpdate `json:"body"`
	}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProfile(ctx, userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-onboarding",
		Method:      http.MethodPost,
		Path:        "/profile/complete",
		Summary:     "Mark onboarding complete",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CompleteOnboarding(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})
}

func registerUniversities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "discover-universities",
		Method:      http.MethodGet,
		Path:        "/universities/discover",
		Summary:     "Scored discovery candidates",
		Errors:      []int{http.StatusUnauthorized, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.ScoredUniversity `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		scored, err := e.Discover(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ScoredUniversity `json:"body"`
		}{Body: scored}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-shortlist",
		Method:      http.MethodGet,
		Path:        "/universities/my",
		Summary:     "My shortlist",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.ShortlistEntry `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.MyShortlist(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ShortlistEntry `json:"body"`
		}{Body: list}, nil
	})

	type shortlistOp func(ctx context.Context, userID, universityID string) (engine.ShortlistResult, error)
	register := func(id, routePath, summary string, op shortlistOp) {
		huma.Register(api, huma.Operation{
			OperationID: id,
			Method:      http.MethodPost,
			Path:        routePath,
			Summary:     summary,
			Errors: []int{
				http.StatusBadRequest,
				http.StatusUnauthorized,
				http.StatusNotFound,
				http.StatusUnprocessableEntity,
			},
		}, func(ctx context.Context, input *struct {
			Body ShortlistRequest `json:"body"`
		}) (*struct {
			Body engine.ShortlistResult `json:"body"`
		}, error) {
			userID, authErr := userIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			if strings.TrimSpace(input.Body.UniversityID) == "" {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "universityId is required", nil)
			}
			res, err := op(ctx, userID, input.Body.UniversityID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body engine.ShortlistResult `json:"body"`
			}{Body: res}, nil
		})
	}
	register("shortlist-university", "/universities/shortlist", "Shortlist a university", e.Shortlist)
	register("lock-university", "/universities/lock", "Lock a shortlisted university", e.Lock)
	register("unlock-university", "/universities/unlock", "Unlock a locked university", e.Unlock)
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "My tasks",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.UserTask `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.MyTasks(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.UserTask `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/generate",
		Summary:     "Generate readiness tasks",
		Errors:      []int{http.StatusUnauthorized, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body GenerateTasksResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		created, err := e.GenerateTasks(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body GenerateTasksResponse `json:"body"`
		}{Body: GenerateTasksResponse{Created: created, Message: "Tasks generated/updated."}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/done",
		Summary:     "Mark task done",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.UserTask `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		task, err := e.MarkTaskDone(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserTask `json:"body"`
		}{Body: task}, nil
	})
}

func registerStage(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stage",
		Method:      http.MethodGet,
		Path:        "/stage",
		Summary:     "Current stage",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		stage, err := e.RecalculateStage(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: StageResponse{Stage: stage}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Stage snapshot",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.StageSnapshot `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		snap, err := e.Snapshot(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StageSnapshot `json:"body"`
		}{Body: snap}, nil
	})
}

func registerWarmup(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "ai-warmup",
		Method:      http.MethodPost,
		Path:        "/internal/ai-warmup",
		Summary:     "Warm provider connections",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		go e.Warmup(context.WithoutCancel(ctx))
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "warming"}}, nil
	})
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

var ErrRequestNotFound = errors.New("approval request not found")

const requestIndexKey = "approval:index"

type RequestRepository interface {
	CreateOrUpdate(ctx context.Context, request *entity.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	GetAll(ctx context.Context) ([]*entity.ApprovalRequest, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbRequest struct {
	client *redis.Client
}

func NewRequestRepository(client *redis.Client) RequestRepository {
	return &dbRequest{
		client: client,
	}
}

func (that *dbRequest) CreateOrUpdate(ctx context.Context, request *entity.ApprovalRequest) error {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal approval request: %w", err)
	}

	requestKey := "approval:" + request.ID
	err = that.client.Set(ctx, requestKey, requestJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set approval request: %w", err)
	}

	if err = that.client.SAdd(ctx, requestIndexKey, request.ID).Err(); err != nil {
		return fmt.Errorf("failed to index approval request: %w", err)
	}

	return nil
}

func (that *dbRequest) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	requestKey := "approval:" + id

	response, err := that.client.Get(ctx, requestKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrRequestNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get approval request by ID: %w", err)
	}

	var existingRequest entity.ApprovalRequest
	if err = json.Unmarshal([]byte(response), &existingRequest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval request: %w", err)
	}

	return &existingRequest, nil
}

func (that *dbRequest) GetAll(ctx context.Context) ([]*entity.ApprovalRequest, error) {
	ids, err := that.client.SMembers(ctx, requestIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list approval request ids: %w", err)
	}

	requests := make([]*entity.ApprovalRequest, 0, len(ids))

	for _, id := range ids {
		request, err := that.GetByID(ctx, id)
		if errors.Is(err, ErrRequestNotFound) {
			// index entry outlived its request; drop it
			_ = that.client.SRem(ctx, requestIndexKey, id).Err()
			continue
		}

		if err != nil {
			return nil, err
		}

		requests = append(requests, request)
	}

	return requests, nil
}

func (that *dbRequest) DeleteByID(ctx context.Context, id string) error {
	requestKey := "approval:" + id

	err := that.client.Del(ctx, requestKey).Err()
	if err != nil {
		return fmt.Errorf("failed to delete approval request by ID: %w", err)
	}

	if err = that.client.SRem(ctx, requestIndexKey, id).Err(); err != nil {
		return fmt.Errorf("failed to unindex approval request: %w", err)
	}

	return nil
}

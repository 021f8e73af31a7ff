package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

var ErrBoardNotFound = errors.New("board not found")

const globalCheckedKey = "board:global"

type BoardRepository interface {
	CreateOrUpdate(ctx context.Context, board *entity.Board) error
	GetByOwnerID(ctx context.Context, ownerID string) (*entity.Board, error)

	SetGlobalChecked(ctx context.Context, squareID string, checked bool) error
	GlobalChecked(ctx context.Context) ([]string, error)
}

type dbBoard struct {
	client *redis.Client
}

func NewBoardRepository(client *redis.Client) BoardRepository {
	return &dbBoard{
		client: client,
	}
}

func (that *dbBoard) CreateOrUpdate(ctx context.Context, board *entity.Board) error {
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	boardKey := "board:" + board.OwnerID
	err = that.client.Set(ctx, boardKey, boardJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set board: %w", err)
	}

	return nil
}

func (that *dbBoard) GetByOwnerID(ctx context.Context, ownerID string) (*entity.Board, error) {
	boardKey := "board:" + ownerID

	response, err := that.client.Get(ctx, boardKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrBoardNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get board by owner ID: %w", err)
	}

	var existingBoard entity.Board
	if err = json.Unmarshal([]byte(response), &existingBoard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	return &existingBoard, nil
}

func (that *dbBoard) SetGlobalChecked(ctx context.Context, squareID string, checked bool) error {
	if checked {
		if err := that.client.SAdd(ctx, globalCheckedKey, squareID).Err(); err != nil {
			return fmt.Errorf("failed to add square to global set: %w", err)
		}

		return nil
	}

	if err := that.client.SRem(ctx, globalCheckedKey, squareID).Err(); err != nil {
		return fmt.Errorf("failed to remove square from global set: %w", err)
	}

	return nil
}

func (that *dbBoard) GlobalChecked(ctx context.Context) ([]string, error) {
	squares, err := that.client.SMembers(ctx, globalCheckedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get global checked squares: %w", err)
	}

	return squares, nil
}

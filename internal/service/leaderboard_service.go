package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardService ranks students of a class by graded points.
type LeaderboardService interface {
	Top(ctx context.Context, actor Actor, classID uint, limit int) (dto.LeaderboardResponse, error)
	Refresh(ctx context.Context, classID, studentID uint) error
	Rebuild(ctx context.Context, classID uint) error
}

type leaderboardService struct {
	submissions repository.SubmissionRepository
	classes     repository.ClassRepository
	users       repository.UserRepository
	access      classAccess
	redis       *redis.Client
	logger      zerolog.Logger
}

// NewLeaderboardService builds the leaderboard. A nil client computes rankings from the database.
func NewLeaderboardService(submissions repository.SubmissionRepository, classes repository.ClassRepository, users repository.UserRepository, client *redis.Client, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		submissions: submissions,
		classes:     classes,
		users:       users,
		access:      classAccess{classes: classes, users: users},
		redis:       client,
		logger:      logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

// LeaderboardKey is the sorted set holding a class ranking.
func LeaderboardKey(classID uint) string {
	return fmt.Sprintf("leaderboard:class:%d", classID)
}

func (s *leaderboardService) Top(ctx context.Context, actor Actor, classID uint, limit int) (dto.LeaderboardResponse, error) {
	if _, err := s.access.requireView(ctx, actor, classID); err != nil {
		return dto.LeaderboardResponse{}, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	var (
		entries []dto.LeaderboardEntry
		me      *dto.LeaderboardEntry
		err     error
	)
	if s.redis != nil {
		entries, me, err = s.topFromRedis(ctx, actor, classID, limit)
		if err != nil {
			s.logger.Warn().Err(err).Uint("class_id", classID).Msg("redis leaderboard unavailable, using database")
		}
	}
	if s.redis == nil || err != nil {
		entries, me, err = s.topFromDatabase(ctx, actor, classID, limit)
		if err != nil {
			return dto.LeaderboardResponse{}, err
		}
	}

	if err := s.attachNames(ctx, entries, me); err != nil {
		return dto.LeaderboardResponse{}, err
	}

	return dto.LeaderboardResponse{ClassID: classID, Entries: entries, Me: me}, nil
}

// Refresh writes one student's current points into the cached ranking.
func (s *leaderboardService) Refresh(ctx context.Context, classID, studentID uint) error {
	if s.redis == nil {
		return nil
	}

	exists, err := s.redis.Exists(ctx, LeaderboardKey(classID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return s.Rebuild(ctx, classID)
	}

	points, err := s.submissions.StudentClassPoints(ctx, classID, studentID)
	if err != nil {
		return err
	}
	return s.redis.ZAdd(ctx, LeaderboardKey(classID), redis.Z{Score: points, Member: memberKey(studentID)}).Err()
}

// Rebuild recomputes the full ranking of a class from graded submissions.
func (s *leaderboardService) Rebuild(ctx context.Context, classID uint) error {
	if s.redis == nil {
		return nil
	}

	ranked, err := s.classPoints(ctx, classID)
	if err != nil {
		return err
	}

	key := LeaderboardKey(classID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(ranked) == 0 {
			return nil
		}
		members := make([]redis.Z, 0, len(ranked))
		for _, row := range ranked {
			members = append(members, redis.Z{Score: row.Points, Member: memberKey(row.StudentID)})
		}
		pipe.ZAdd(ctx, key, members...)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Uint("class_id", classID).Int("students", len(ranked)).Msg("leaderboard rebuilt")
	return nil
}

func (s *leaderboardService) topFromRedis(ctx context.Context, actor Actor, classID uint, limit int) ([]dto.LeaderboardEntry, *dto.LeaderboardEntry, error) {
	key := LeaderboardKey(classID)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return nil, nil, err
	}
	if exists == 0 {
		if err := s.Rebuild(ctx, classID); err != nil {
			return nil, nil, err
		}
	}

	rows, err := s.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		member, _ := row.Member.(string)
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		rank := i + 1
		if i > 0 && entries[len(entries)-1].Points == row.Score {
			rank = entries[len(entries)-1].Rank
		}
		entries = append(entries, dto.LeaderboardEntry{Rank: rank, StudentID: uint(id), Points: row.Score})
	}

	if !actor.IsStudent() {
		return entries, nil, nil
	}

	score, err := s.redis.ZScore(ctx, key, memberKey(actor.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return entries, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	higher, err := s.redis.ZCount(ctx, key, "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		return nil, nil, err
	}
	return entries, &dto.LeaderboardEntry{Rank: int(higher) + 1, StudentID: actor.ID, Points: score}, nil
}

func (s *leaderboardService) topFromDatabase(ctx context.Context, actor Actor, classID uint, limit int) ([]dto.LeaderboardEntry, *dto.LeaderboardEntry, error) {
	ranked, err := s.classPoints(ctx, classID)
	if err != nil {
		return nil, nil, err
	}

	all := rankRows(ranked)
	var me *dto.LeaderboardEntry
	if actor.IsStudent() {
		for i := range all {
			if all[i].StudentID == actor.ID {
				entry := all[i]
				me = &entry
				break
			}
		}
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, me, nil
}

// classPoints returns every enrolled student with graded points, zero when ungraded.
func (s *leaderboardService) classPoints(ctx context.Context, classID uint) ([]repository.StudentPoints, error) {
	rows, err := s.submissions.ClassPoints(ctx, classID)
	if err != nil {
		return nil, err
	}
	members, err := s.classes.ListMembers(ctx, classID)
	if err != nil {
		return nil, err
	}

	// Students who left keep their submissions but drop off the ranking.
	points := make(map[uint]repository.StudentPoints, len(rows))
	for _, row := range rows {
		points[row.StudentID] = row
	}
	rows = make([]repository.StudentPoints, 0, len(members))
	for _, member := range members {
		row, ok := points[member.StudentID]
		if !ok {
			row = repository.StudentPoints{StudentID: member.StudentID}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows, nil
}

func (s *leaderboardService) attachNames(ctx context.Context, entries []dto.LeaderboardEntry, me *dto.LeaderboardEntry) error {
	ids := make([]uint, 0, len(entries)+1)
	for _, entry := range entries {
		ids = append(ids, entry.StudentID)
	}
	if me != nil {
		ids = append(ids, me.StudentID)
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	names := make(map[uint]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}
	for i := range entries {
		entries[i].Name = names[entries[i].StudentID]
	}
	if me != nil {
		me.Name = names[me.StudentID]
	}
	return nil
}

// rankRows applies competition ranking to rows sorted by points descending.
func rankRows(rows []repository.StudentPoints) []dto.LeaderboardEntry {
	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		rank := i + 1
		if i > 0 && rows[i-1].Points == row.Points {
			rank = entries[i-1].Rank
		}
		entries = append(entries, dto.LeaderboardEntry{Rank: rank, StudentID: row.StudentID, Points: row.Points})
	}
	return entries
}

func memberKey(studentID uint) string {
	return strconv.FormatUint(uint64(studentID), 10)
}

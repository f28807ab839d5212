package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

type (
	// VoteReq casts a vote; 0 retracts the caller's vote.
	VoteReq struct {
		Vote int `json:"vote" validate:"min=-1,max=1"`
	}

	VoteTally struct {
		Score  int64 `json:"score"`
		Up     int64 `json:"up"`
		Down   int64 `json:"down"`
		MyVote int   `json:"my_vote"`
	}
)

func (s *General) PostVote(ctx context.Context, actor *db.User, postID uint64, req VoteReq) (*VoteTally, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	var tally *VoteTally
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &db.Post{}, postID, "Post"); err != nil {
			return err
		}

		existing := db.PostVote{}
		res := tx.Where("post_id = ? AND user_id = ?", postID, actor.ID).Limit(1).Find(&existing)
		if res.Error != nil {
			return errors.Wrap(res.Error, "find vote")
		}
		found := res.RowsAffected > 0

		switch {
		case req.Vote == 0 && found:
			res = tx.Delete(&existing)
		case req.Vote == 0:
		case found:
			res = tx.Model(&existing).Update("vote", req.Vote)
		default:
			res = tx.Create(&db.PostVote{PostID: postID, UserID: actor.ID, Vote: req.Vote})
		}
		if res.Error != nil {
			return errors.Wrap(res.Error, "save vote")
		}

		var err error
		tally, err = voteTally(tx, postID, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tally, nil
}

func (s *General) PostVotes(ctx context.Context, actor *db.User, postID uint64) (*VoteTally, error) {
	tx := s.db.WithContext(ctx)
	if err := first(tx, &db.Post{}, postID, "Post"); err != nil {
		return nil, err
	}
	return voteTally(tx, postID, actor.ID)
}

func voteTally(tx *gorm.DB, postID, userID uint64) (*VoteTally, error) {
	tally := VoteTally{}
	res := tx.Model(&db.PostVote{}).
		Select("COALESCE(SUM(CASE WHEN vote > 0 THEN 1 ELSE 0 END), 0) AS up, "+
			"COALESCE(SUM(CASE WHEN vote < 0 THEN 1 ELSE 0 END), 0) AS down").
		Where("post_id = ?", postID).
		Scan(&tally)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "tally votes")
	}
	tally.Score = tally.Up - tally.Down

	mine := db.PostVote{}
	res = tx.Where("post_id = ? AND user_id = ?", postID, userID).Limit(1).Find(&mine)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "find own vote")
	}
	tally.MyVote = mine.Vote
	return &tally, nil
}

package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"quizhub/internal/models"
)

// fakeRecommendationStore is an in-memory RecommendationStoreInterface for
// engine unit tests. Errors can be injected per method.
type fakeRecommendationStore struct {
	mu sync.Mutex

	questions    map[int]models.Question
	wrongAnswers map[int][]int // attemptID -> question IDs
	resources    []models.Resource
	peerWrong    map[int][]int               // questionID -> user IDs who got it wrong
	peerRecs     map[int][]models.Recommendation // userID -> their recommendations

	saved  []models.Recommendation
	nextID int

	questionsErr error
	wrongErr     error
	resourcesErr error
	peersErr     error
	peerRecsErr  error
	upsertErr    error
	// failResourceID makes upserts for a single resource fail
	failResourceID int
	upsertCalls    int
}

func newFakeStore() *fakeRecommendationStore {
	return &fakeRecommendationStore{
		questions:    make(map[int]models.Question),
		wrongAnswers: make(map[int][]int),
		peerWrong:    make(map[int][]int),
		peerRecs:     make(map[int][]models.Recommendation),
		nextID:       1,
	}
}

func (f *fakeRecommendationStore) QuestionsByIDs(_ context.Context, ids []int) ([]models.Question, error) {
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	var result []models.Question
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			result = append(result, q)
		}
	}
	return result, nil
}

func (f *fakeRecommendationStore) WrongAnswerQuestionIDs(_ context.Context, attemptID int) ([]int, error) {
	if f.wrongErr != nil {
		return nil, f.wrongErr
	}
	return f.wrongAnswers[attemptID], nil
}

func (f *fakeRecommendationStore) AllResources(_ context.Context) ([]models.Resource, error) {
	if f.resourcesErr != nil {
		return nil, f.resourcesErr
	}
	return f.resources, nil
}

func (f *fakeRecommendationStore) UsersWhoAnsweredWrong(_ context.Context, questionIDs []int, excludeUserID int) ([]int, error) {
	if f.peersErr != nil {
		return nil, f.peersErr
	}
	seen := make(map[int]bool)
	var users []int
	for _, qid := range questionIDs {
		for _, uid := range f.peerWrong[qid] {
			if uid != excludeUserID && !seen[uid] {
				seen[uid] = true
				users = append(users, uid)
			}
		}
	}
	sort.Ints(users)
	return users, nil
}

func (f *fakeRecommendationStore) PeerRecommendedResourceIDs(_ context.Context, userIDs []int, minScore float64, limit int) ([]int, error) {
	if f.peerRecsErr != nil {
		return nil, f.peerRecsErr
	}
	best := make(map[int]float64)
	for _, uid := range userIDs {
		for _, rec := range f.peerRecs[uid] {
			if rec.RelevanceScore > minScore && rec.RelevanceScore > best[rec.ResourceID] {
				best[rec.ResourceID] = rec.RelevanceScore
			}
		}
	}
	ids := make([]int, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if best[ids[a]] != best[ids[b]] {
			return best[ids[a]] > best[ids[b]]
		}
		return ids[a] < ids[b]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeRecommendationStore) UpsertRecommendation(_ context.Context, userID, resourceID, attemptID int, score float64) (*models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.failResourceID != 0 && resourceID == f.failResourceID {
		return nil, errors.New("simulated persistence failure")
	}

	// Update in place on triple match, preserving viewed state
	for i := range f.saved {
		rec := &f.saved[i]
		if rec.UserID == userID && rec.ResourceID == resourceID && rec.QuizAttemptID == attemptID {
			rec.RelevanceScore = score
			copied := *rec
			return &copied, nil
		}
	}

	rec := models.Recommendation{
		ID:             f.nextID,
		UserID:         userID,
		ResourceID:     resourceID,
		QuizAttemptID:  attemptID,
		RelevanceScore: score,
		Viewed:         false,
		CreatedAt:      time.Now(),
	}
	f.nextID++
	f.saved = append(f.saved, rec)
	return &rec, nil
}

func (f *fakeRecommendationStore) RecommendationsForAttempt(_ context.Context, userID, attemptID int) ([]models.Recommendation, error) {
	var result []models.Recommendation
	for _, rec := range f.saved {
		if rec.QuizAttemptID == attemptID && rec.UserID == userID {
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].RelevanceScore > result[b].RelevanceScore
	})
	return result, nil
}

func (f *fakeRecommendationStore) RecommendationsForUser(_ context.Context, userID int) ([]models.Recommendation, error) {
	var result []models.Recommendation
	for _, rec := range f.saved {
		if rec.UserID == userID {
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].RelevanceScore > result[b].RelevanceScore
	})
	return result, nil
}

func (f *fakeRecommendationStore) MarkViewed(_ context.Context, userID, recommendationID int) error {
	for i := range f.saved {
		if f.saved[i].ID == recommendationID && f.saved[i].UserID == userID {
			f.saved[i].Viewed = true
			return nil
		}
	}
	return errors.New("not found")
}

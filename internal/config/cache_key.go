package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// SessionStartKey returns the cache key for a student's assessment session start
func (r *CacheKeyStruct) SessionStartKey(contestID string, studentID int) string {
	return fmt.Sprintf("student:%d:contest:%s:session_start", studentID, contestID)
}

// QuestionOrderKey returns the cache key for a student's shuffled question order
func (r *CacheKeyStruct) QuestionOrderKey(contestID string, studentID int) string {
	return fmt.Sprintf("student:%d:contest:%s:question_order", studentID, contestID)
}

// StudentAnswersKey returns the cache key for a student's saved answers
func (r *CacheKeyStruct) StudentAnswersKey(contestID string, studentID int) string {
	return fmt.Sprintf("student:%d:contest:%s:answers", studentID, contestID)
}

// StudentStatusesKey returns the cache key for a student's question statuses
func (r *CacheKeyStruct) StudentStatusesKey(contestID string, studentID int) string {
	return fmt.Sprintf("student:%d:contest:%s:statuses", studentID, contestID)
}

// ContestPayloadKey returns the cache key for a contest's student payload
func (r *CacheKeyStruct) ContestPayloadKey(contestID string) string {
	return fmt.Sprintf("contest:%s:payload", contestID)
}

// ContestDurationKey returns the cache key for a contest's duration
func (r *CacheKeyStruct) ContestDurationKey(contestID string) string {
	return fmt.Sprintf("contest:%s:duration", contestID)
}

// ContestAnswerKey returns the cache key for a contest's answer key
func (r *CacheKeyStruct) ContestAnswerKey(contestID string) string {
	return fmt.Sprintf("contest:%s:key", contestID)
}

var CacheKey = NewCacheKeyStruct()

package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestListFilter(t *testing.T) {
	assert.Equal(t, bson.M{"recipientId": "amy"}, listFilter("amy", false))
	assert.Equal(t, bson.M{"recipientId": "amy", "isRead": false}, listFilter("amy", true))
}

type countRecorder []string

func (r *countRecorder) PushCount(id string) { *r = append(*r, id) }

func TestChangedPushesCount(t *testing.T) {
	rec := &countRecorder{}
	svc := &Service{counter: rec}
	svc.changed("amy")
	assert.Equal(t, []string{"amy"}, []string(*rec))

	(&Service{}).changed("bob")
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCommunityNameIndexIgnoresCase(t *testing.T) {
	idx := indexModels()[communitiesCollection]
	require.Len(t, idx, 1)

	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, idx[0].Keys)
	opts := idx[0].Options
	require.NotNil(t, opts.Unique)
	assert.True(t, *opts.Unique)
	require.NotNil(t, opts.Collation)
	assert.Equal(t, 2, opts.Collation.Strength)
}

func TestUniqueIndexes(t *testing.T) {
	unique := map[string]string{}
	for collection, idx := range indexModels() {
		for _, m := range idx {
			if m.Options != nil && m.Options.Unique != nil && *m.Options.Unique {
				unique[collection] = m.Keys.(bson.D)[0].Key
			}
		}
	}
	assert.Equal(t, map[string]string{
		usersCollection:       "email",
		communitiesCollection: "name",
		issuesCollection:      "issueId",
	}, unique)
}

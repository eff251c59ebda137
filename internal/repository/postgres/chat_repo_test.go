package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/repository/postgres"
	"github.com/dom/chatbot-web/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestChatRepository_AppendAndList(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	empty, err := repos.Chat.List(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	reply := domain.NewAssistantMessage("hello")
	reply.Metadata = datatypes.JSONMap{domain.MetadataModel: "gpt-test"}

	require.NoError(t, repos.Chat.Append(ctx, user.ID, domain.NewUserMessage("hi")))
	require.NoError(t, repos.Chat.Append(ctx, user.ID, reply, domain.NewUserMessage("again")))

	got, err := repos.Chat.List(ctx, user.ID)
	require.NoError(t, err)
	testutil.AssertConversation(t, []domain.Message{
		domain.NewUserMessage("hi"),
		domain.NewAssistantMessage("hello"),
		domain.NewUserMessage("again"),
	}, got)
	assert.Equal(t, "gpt-test", got[1].Metadata[domain.MetadataModel])
	assert.Equal(t, user.ID, got[0].UserID)
}

func TestChatRepository_AppendInvalidRole(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	err := repos.Chat.Append(ctx, user.ID,
		domain.NewUserMessage("ok"),
		domain.Message{Role: "system", Content: "nope"},
	)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	got, err := repos.Chat.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChatRepository_ClearIsScopedAndIdempotent(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, repos.User)
	bob, _ := testutil.NewUserBuilder().Build(t, repos.User)

	testutil.SeedMessages(t, repos.Chat, alice.ID, domain.NewUserMessage("a1"), domain.NewAssistantMessage("a2"))
	testutil.SeedMessages(t, repos.Chat, bob.ID, domain.NewUserMessage("b1"))

	require.NoError(t, repos.Chat.Clear(ctx, alice.ID))
	require.NoError(t, repos.Chat.Clear(ctx, alice.ID))

	aliceChats, err := repos.Chat.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, aliceChats)

	bobChats, err := repos.Chat.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, bobChats, 1)
}

func TestChatRepository_ConcurrentAppends(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repos.Chat.Append(ctx, user.ID,
				domain.NewUserMessage(fmt.Sprintf("q%d", i)),
				domain.NewAssistantMessage(fmt.Sprintf("a%d", i)),
			)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repos.Chat.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got, writers*2)

	// Concurrent writers may interleave, but every question precedes its answer.
	position := make(map[string]int, len(got))
	for i, m := range got {
		position[m.Content] = i
	}
	for i := 0; i < writers; i++ {
		q, okQ := position[fmt.Sprintf("q%d", i)]
		a, okA := position[fmt.Sprintf("a%d", i)]
		require.True(t, okQ && okA, "missing messages for writer %d", i)
		assert.Less(t, q, a)
	}
}

func TestChatRepository_SQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repos := postgres.NewRepositories(db)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos.User)
	testutil.SeedMessages(t, repos.Chat, user.ID, domain.NewUserMessage("hi"), domain.NewAssistantMessage("hey"))

	got, err := repos.Chat.List(ctx, user.ID)
	require.NoError(t, err)
	testutil.AssertConversation(t, []domain.Message{
		domain.NewUserMessage("hi"),
		domain.NewAssistantMessage("hey"),
	}, got)
}

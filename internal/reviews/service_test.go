package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/pkg/db/dbtest"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	svc, err := NewService(ServiceParams{
		DB:      client,
		Repo:    NewRepository(conn),
		Movies:  movies.NewRepository(conn),
		Emitter: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc, conn
}

func countOutbox(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestAddCreatesThenUpdatesSingleReview(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, conn, "alice")
	movie := dbtest.MustCreateMovie(t, conn, "Alien", "4.00")

	first, err := svc.Add(ctx, movie.ID, user.ID, ReviewInput{Rating: 3, Text: " fine "})
	require.NoError(t, err)
	assert.Equal(t, "fine", first.Text)

	second, err := svc.Add(ctx, movie.ID, user.ID, ReviewInput{Rating: 5, Text: "great on rewatch"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, conn.Model(&models.Review{}).Where("movie_id = ?", movie.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := svc.Get(ctx, first.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Rating)
	assert.Equal(t, "great on rewatch", stored.Text)
}

func TestAddValidatesInputAndMovie(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, conn, "")
	movie := dbtest.MustCreateMovie(t, conn, "Alien", "4.00")

	_, err := svc.Add(ctx, movie.ID, user.ID, ReviewInput{Rating: 6, Text: "too good"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.FieldErrors(err), "rating")

	_, err = svc.Add(ctx, movie.ID, user.ID, ReviewInput{Rating: 4, Text: "   "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.FieldErrors(err), "text")

	_, err = svc.Add(ctx, uuid.New(), user.ID, ReviewInput{Rating: 4, Text: "ok"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestEditAndDeleteAreOwnerScoped(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := dbtest.MustCreateUser(t, conn, "owner")
	other := dbtest.MustCreateUser(t, conn, "other")
	movie := dbtest.MustCreateMovie(t, conn, "Alien", "4.00")
	review := dbtest.MustCreateReview(t, conn, movie.ID, owner.ID, 4, "tense")

	_, err := svc.Edit(ctx, review.ID, other.ID, ReviewInput{Rating: 1, Text: "mine now"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Delete(ctx, review.ID, other.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	edited, err := svc.Edit(ctx, review.ID, owner.ID, ReviewInput{Rating: 2, Text: "aged badly"})
	require.NoError(t, err)
	assert.Equal(t, 2, edited.Rating)

	movieID, err := svc.Delete(ctx, review.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, movie.ID, movieID)

	_, err = svc.Get(ctx, review.ID, owner.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReportHidesReviewForReporterOnly(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	author := dbtest.MustCreateUser(t, conn, "author")
	reporter := dbtest.MustCreateUser(t, conn, "reporter")
	bystander := dbtest.MustCreateUser(t, conn, "bystander")
	movie := dbtest.MustCreateMovie(t, conn, "Alien", "4.00")
	review := dbtest.MustCreateReview(t, conn, movie.ID, author.ID, 1, "spam spam")

	res, err := svc.Report(ctx, review.ID, reporter.ID, ReportInput{Reason: "spam"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, movie.ID, res.MovieID)

	again, err := svc.Report(ctx, review.ID, reporter.ID, ReportInput{})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, movie.ID, again.MovieID)
	assert.EqualValues(t, 1, countOutbox(t, conn, enums.EventReviewReported))

	var reports []models.ReviewReport
	require.NoError(t, conn.Where("review_id = ?", review.ID).Find(&reports).Error)
	require.Len(t, reports, 1)
	assert.Equal(t, reporter.ID, reports[0].UserID)
	assert.Equal(t, "spam", reports[0].Reason)

	forReporter, err := svc.ListForMovie(ctx, movie.ID, reporter.ID)
	require.NoError(t, err)
	assert.Empty(t, forReporter.Reviews)

	forBystander, err := svc.ListForMovie(ctx, movie.ID, bystander.ID)
	require.NoError(t, err)
	require.Len(t, forBystander.Reviews, 1)
	assert.Equal(t, "author", forBystander.Reviews[0].Username)
	assert.False(t, forBystander.Reviews[0].IsOwn)

	anonymous, err := svc.ListForMovie(ctx, movie.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, anonymous.Reviews, 1)
	assert.Nil(t, anonymous.Own)
}

func TestReportUnknownReview(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, "")

	_, err := svc.Report(context.Background(), uuid.New(), user.ID, ReportInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, countOutbox(t, conn, enums.EventReviewReported))
}

func TestListForMovieMarksOwnVisibleReview(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	me := dbtest.MustCreateUser(t, conn, "me")
	you := dbtest.MustCreateUser(t, conn, "you")
	movie := dbtest.MustCreateMovie(t, conn, "Alien", "4.00")
	mine := dbtest.MustCreateReview(t, conn, movie.ID, me.ID, 5, "classic")
	dbtest.MustCreateReview(t, conn, movie.ID, you.ID, 3, "ok")

	out, err := svc.ListForMovie(ctx, movie.ID, me.ID)
	require.NoError(t, err)
	require.Len(t, out.Reviews, 2)
	require.NotNil(t, out.Own)
	assert.Equal(t, mine.ID, out.Own.ID)

	_, err = svc.Report(ctx, mine.ID, me.ID, ReportInput{})
	require.NoError(t, err)
	out, err = svc.ListForMovie(ctx, movie.ID, me.ID)
	require.NoError(t, err)
	assert.Len(t, out.Reviews, 1)
	assert.Nil(t, out.Own)
}

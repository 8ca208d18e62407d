package notify

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/lib/store/storetest"
	"github.com/fiffu/seatwatch/senders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	available bool
	err       error

	subjects   []string
	bodies     []string
	recipients []string
}

func (f *fakeSender) Available() bool { return f.available }

func (f *fakeSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	f.recipients = append(f.recipients, recipient)
	return "id", f.err
}

func setup(t *testing.T, chatID string) (*store.Store, *models.WatchTarget) {
	ctx := context.Background()
	st := store.New(storetest.Open(t))

	user, err := st.CreateUser(ctx, "sv@dtu.edu.vn")
	require.NoError(t, err)
	if chatID != "" {
		require.NoError(t, st.LinkTelegram(ctx, user.ID, chatID))
	}

	seeded := storetest.SeedTarget(t, st, user, "https://courses.duytan.edu.vn/x?classid=1", 0)
	require.NoError(t, st.PatchTarget(ctx, seeded.ID, models.TargetPatch{
		ClassName: ptr("Lập trình Web"),
		ClassCode: ptr("CS 464"),
	}))

	target, err := st.FindTarget(ctx, user.ID, seeded.ID)
	require.NoError(t, err)
	return st, target
}

func ptr(s string) *string { return &s }

func TestDispatchTelegramWithoutChatID(t *testing.T) {
	st, target := setup(t, "")
	target.NotifyEmail = false

	tg := &fakeSender{available: true}
	d := New(zap.NewNop(), st, senders.Registry{models.ChannelTelegram: tg})

	out := d.Dispatch(context.Background(), target, models.EventOpen, 3)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, tg.bodies)

	records, err := st.ListNotifications(context.Background(), target.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDispatchBothChannels(t *testing.T) {
	st, target := setup(t, "123456")

	tg := &fakeSender{available: true}
	mail := &fakeSender{available: true, err: errors.New("mailgun: 401")}
	d := New(zap.NewNop(), st, senders.Registry{
		models.ChannelTelegram: tg,
		models.ChannelEmail:    mail,
	})

	out := d.Dispatch(context.Background(), target, models.EventOpen, 5)
	assert.Equal(t, Outcome{Sent: 1, Failed: 1}, out)

	require.Len(t, tg.recipients, 1)
	assert.Equal(t, "123456", tg.recipients[0])
	assert.Contains(t, tg.bodies[0], "SLOT MỞ!")
	assert.Contains(t, tg.bodies[0], "Còn trống: 5 chỗ")
	assert.Contains(t, tg.bodies[0], "Mã: CS 464")

	require.Len(t, mail.subjects, 1)
	assert.Equal(t, "[MyDTU] Slot mở: Lập trình Web - Còn 5 chỗ", mail.subjects[0])
	assert.Equal(t, "sv@dtu.edu.vn", mail.recipients[0])

	records, err := st.ListNotifications(context.Background(), target.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byChannel := map[models.Channel]models.NotificationRecord{}
	for _, r := range records {
		byChannel[r.Channel] = r
	}
	assert.Equal(t, models.DeliverySuccess, byChannel[models.ChannelTelegram].Status)
	assert.False(t, byChannel[models.ChannelTelegram].ErrorMessage.Valid)
	assert.Equal(t, models.DeliveryFail, byChannel[models.ChannelEmail].Status)
	assert.Equal(t, sql.NullString{String: "mailgun: 401", Valid: true}, byChannel[models.ChannelEmail].ErrorMessage)
	for _, r := range records {
		assert.Equal(t, models.EventOpen, r.EventType)
		assert.Equal(t, 5, r.Remaining)
	}
}

func TestDispatchSkipsUnavailableAndDisabled(t *testing.T) {
	st, target := setup(t, "123456")
	target.NotifyEmail = false

	tg := &fakeSender{available: false}
	mail := &fakeSender{available: true}
	d := New(zap.NewNop(), st, senders.Registry{
		models.ChannelTelegram: tg,
		models.ChannelEmail:    mail,
	})

	out := d.Dispatch(context.Background(), target, models.EventIncrease, 2)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, tg.bodies)
	assert.Empty(t, mail.bodies)
}

func TestDispatchNoEvent(t *testing.T) {
	st, target := setup(t, "123456")
	tg := &fakeSender{available: true}
	d := New(zap.NewNop(), st, senders.Registry{models.ChannelTelegram: tg})

	assert.Equal(t, Outcome{}, d.Dispatch(context.Background(), target, models.EventNone, 2))
	assert.Empty(t, tg.bodies)
}

func TestMessages(t *testing.T) {
	target := &models.WatchTarget{ClassURL: "https://courses.duytan.edu.vn/x?a=1&b=2"}

	open := message{target, models.EventOpen, 1}
	assert.Equal(t, "[MyDTU] Slot mở: Lớp học - Còn 1 chỗ", open.Subject())
	assert.NotContains(t, open.Telegram(), "Mã:")
	assert.Contains(t, open.Telegram(), `href="https://courses.duytan.edu.vn/x?a=1&amp;b=2"`)

	target.ClassCode = sql.NullString{String: "CS 464", Valid: true}
	inc := message{target, models.EventIncrease, 4}
	assert.Equal(t, "[MyDTU] Slot tăng: CS 464 - Còn 4 chỗ", inc.Subject())
	assert.Contains(t, inc.Telegram(), "📈 <b>SLOT TĂNG!</b>")
	assert.Contains(t, inc.Body(), "Mã: CS 464")
}

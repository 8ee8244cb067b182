package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/testutil"
	"github.com/roach88/sfbtools/internal/timestamp"
)

func TestLoadScenario(t *testing.T) {
	doc := testutil.Scenario(
		"<MaxDelay>100</MaxDelay><RealTime>True</RealTime><CurrentTime>False</CurrentTime>",
		testutil.SDN("call-1", "", "2015-08-04T09:11:10.8226250-04:00"),
		testutil.SQLQuery("INSERT INTO t VALUES (1)", "2015-08-04T13:11:12Z"),
		testutil.SDN("call-2", "", "2015-08-04T09:11:20-04:00"),
	)

	sc, err := LoadScenario([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "SfbReplay", sc.Root)
	require.NotNil(t, sc.Settings.MaxDelay)
	assert.Equal(t, 100, *sc.Settings.MaxDelay)
	assert.True(t, *sc.Settings.RealTime)
	assert.False(t, *sc.Settings.RebaseToNow)
	assert.True(t, sc.Config.RealTime)

	require.Len(t, sc.Messages, 3)
	assert.Equal(t, message.KindSDN, sc.Messages[0].Kind())
	assert.Equal(t, message.KindSQLQuery, sc.Messages[1].Kind())
	assert.Equal(t, []message.Kind{message.KindSDN, message.KindSQLQuery}, sc.Kinds())

	q, ok := sc.Messages[1].(*message.SQLQuery).Query()
	require.True(t, ok)
	assert.Equal(t, "INSERT INTO t VALUES (1)", q)
}

func TestLoadScenario_EmptyConfiguration(t *testing.T) {
	sc, err := LoadScenario([]byte(`<SfbReplay><ReplayConfiguration></ReplayConfiguration></SfbReplay>`))
	require.NoError(t, err)
	assert.Nil(t, sc.Settings.MaxDelay)
	assert.Nil(t, sc.Settings.RealTime)
	assert.Nil(t, sc.Settings.RebaseToNow)
	assert.Empty(t, sc.Messages)
}

func TestLoadScenario_LegacyLayout(t *testing.T) {
	doc := `<Mocker><Description> legacy run </Description>` +
		`<MockerConfiguration><MaxDelay>2</MaxDelay></MockerConfiguration>` +
		`<MockMessages>` + testutil.SDN("abc", "", "2015-08-04T09:11:10Z") + `</MockMessages></Mocker>`

	sc, err := LoadScenario([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Mocker", sc.Root)
	assert.Equal(t, "legacy run", sc.Description)
	assert.Equal(t, 2, *sc.Config.MaxDelay)
	assert.Len(t, sc.Messages, 1)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := map[string]string{
		"not xml": "<SfbReplay>",
		"invalid config": `<SfbReplay><ReplayConfiguration><MaxDelay>random##$</MaxDelay>` +
			`<RealTime>random!@888**</RealTime></ReplayConfiguration></SfbReplay>`,
		"unknown message":      `<SfbReplay><ReplayMessages><Bogus/></ReplayMessages></SfbReplay>`,
		"nested configuration": `<SfbReplay><ReplayMessages><ReplayConfiguration/></ReplayMessages></SfbReplay>`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario([]byte(doc))
			require.Error(t, err)
			assert.True(t, IsConfigError(err), "expected ConfigError, got %v", err)
		})
	}
}

func TestLoadScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.xml")
	require.NoError(t, os.WriteFile(path, []byte(testutil.Scenario("")), 0o644))

	sc, err := LoadScenarioFile(path)
	require.NoError(t, err)
	assert.Empty(t, sc.Messages)

	_, err = LoadScenarioFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}

func TestRebaseMessages(t *testing.T) {
	doc := testutil.Scenario("",
		testutil.SDN("a", "", "2015-08-04T09:11:10-04:00"),
		testutil.SQLQuery("SELECT 1", "2015-08-04T13:11:15Z"),
		testutil.SDN("b", "", "2015-08-04T15:11:30+02:00"),
	)
	sc, err := LoadScenario([]byte(doc))
	require.NoError(t, err)

	anchor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, RebaseMessages(sc.Messages, anchor))

	want := []time.Time{anchor, anchor.Add(5 * time.Second), anchor.Add(20 * time.Second)}
	for i, m := range sc.Messages {
		got, err := m.Timestamp()
		require.NoError(t, err)
		assert.True(t, got.Equal(want[i]), "message %d: want %v, got %v", i+1, want[i], got)
	}

	text, _ := sc.Messages[0].Element().FindText(message.PathSDNTimestamp)
	assert.Equal(t, "2026-03-01T12:00:00.0000000Z", text)
}

func TestRebaseMessages_SingleMessage(t *testing.T) {
	sc, err := LoadScenario([]byte(testutil.Scenario("", testutil.SDN("a", "", "2015-08-04T09:11:10-04:00"))))
	require.NoError(t, err)

	anchor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, RebaseMessages(sc.Messages, anchor))

	got, err := sc.Messages[0].Timestamp()
	require.NoError(t, err)
	assert.True(t, got.Equal(anchor))
}

func TestRebaseMessages_BadTimestampLeavesMessagesUntouched(t *testing.T) {
	doc := testutil.Scenario("",
		testutil.SDN("a", "", "2015-08-04T09:11:10Z"),
		testutil.SDN("b", "", "2015-08-04T09:11:20"),
	)
	sc, err := LoadScenario([]byte(doc))
	require.NoError(t, err)

	err = RebaseMessages(sc.Messages, time.Now())
	require.Error(t, err)

	text, _ := sc.Messages[0].Element().FindText(message.PathSDNTimestamp)
	assert.Equal(t, "2015-08-04T09:11:10Z", text)
}

func TestRebaseMessages_UnrepresentableResultLeavesMessagesUntouched(t *testing.T) {
	doc := testutil.Scenario("",
		testutil.SDN("a", "", "2015-08-04T09:11:10Z"),
		testutil.SQLQuery("SELECT 1", "2016-08-04T09:11:10Z"),
	)
	sc, err := LoadScenario([]byte(doc))
	require.NoError(t, err)

	// The first message fits; the second lands in year 10000.
	anchor := time.Date(9999, 6, 1, 0, 0, 0, 0, time.UTC)
	err = RebaseMessages(sc.Messages, anchor)
	require.Error(t, err)

	var fe *timestamp.FormatError
	assert.ErrorAs(t, err, &fe)

	first, _ := sc.Messages[0].Element().FindText(message.PathSDNTimestamp)
	assert.Equal(t, "2015-08-04T09:11:10Z", first)
	second, _ := sc.Messages[1].Element().FindText(message.PathSQLTimestamp)
	assert.Equal(t, "2016-08-04T09:11:10Z", second)
}

func TestScenario_Prepare(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("", 3600))

	sc, err := LoadScenario([]byte(testutil.Scenario("<CurrentTime>true</CurrentTime>",
		testutil.SDN("a", "", "2015-08-04T09:11:10Z"))))
	require.NoError(t, err)
	require.NoError(t, sc.Prepare(now))
	text, _ := sc.Messages[0].Element().FindText(message.PathSDNTimestamp)
	assert.Equal(t, "2026-03-01T11:00:00.0000000Z", text)

	sc, err = LoadScenario([]byte(testutil.Scenario("<CurrentTime>false</CurrentTime>",
		testutil.SDN("a", "", "2015-08-04T09:11:10Z"))))
	require.NoError(t, err)
	require.NoError(t, sc.Prepare(now))
	text, _ = sc.Messages[0].Element().FindText(message.PathSDNTimestamp)
	assert.Equal(t, "2015-08-04T09:11:10Z", text)
}

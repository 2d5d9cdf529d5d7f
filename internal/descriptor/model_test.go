package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApplication() *Application {
	return &Application{
		Name: "hbase",
		Components: []*Component{
			{
				Name:          "HBASE_MASTER",
				Category:      CategoryMaster,
				PublishConfig: true,
				AppExports:    "QuickLinks-org.apache.slider.jmx, QuickLinks-org.apache.slider.monitor",
				CommandScript: &CommandScript{Script: "scripts/hbase_master.py", TimeoutSeconds: 600},
			},
			{
				Name:        "HBASE_REGIONSERVER",
				Category:    CategorySlave,
				AutoStart:   true,
				CompExports: "QuickLinks-app.metrics",
				CommandScript: &CommandScript{
					Script: "scripts/hbase_regionserver.py",
				},
			},
		},
		ExportGroups: []*ExportGroup{
			{
				Name: "QuickLinks",
				Exports: []*Export{
					{Name: "org.apache.slider.jmx", Value: "http://${HBASE_MASTER_HOST}:${site.hbase-site.master.info.port}/jmx"},
				},
			},
		},
		CommandOrders: []*CommandOrder{
			{Command: "HBASE_REGIONSERVER-START", Requires: "HBASE_MASTER-STARTED"},
		},
	}
}

func TestValidate(t *testing.T) {
	app := testApplication()
	require.NoError(t, app.Validate())

	tests := []struct {
		name    string
		mutate  func(*Application)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(a *Application) { a.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "no components",
			mutate:  func(a *Application) { a.Components = nil },
			wantErr: "no components",
		},
		{
			name: "duplicate component",
			mutate: func(a *Application) {
				a.Components = append(a.Components, a.Components[0])
			},
			wantErr: "duplicate component",
		},
		{
			name: "instance count range",
			mutate: func(a *Application) {
				a.Components[0].MinInstanceCount = 3
				a.Components[0].MaxInstanceCount = 1
			},
			wantErr: "exceeds maxInstanceCount",
		},
		{
			name: "no exec specification",
			mutate: func(a *Application) {
				a.Components[0].CommandScript = nil
				a.Components[0].Commands = nil
			},
			wantErr: "neither a command script nor commands",
		},
		{
			name: "order references unknown component",
			mutate: func(a *Application) {
				a.CommandOrders[0].Command = "NOT_THERE-START"
			},
			wantErr: "unknown component",
		},
		{
			name: "malformed order reference",
			mutate: func(a *Application) {
				a.CommandOrders[0].Requires = "HBASE_MASTER"
			},
			wantErr: "malformed order reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApplication()
			tt.mutate(app)
			err := app.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestComponentLookup(t *testing.T) {
	app := testApplication()

	assert.NotNil(t, app.Component("HBASE_MASTER"))
	assert.Nil(t, app.Component("UNKNOWN"))
	assert.True(t, app.IsMaster("HBASE_MASTER"))
	assert.False(t, app.IsMaster("HBASE_REGIONSERVER"))
	assert.False(t, app.IsMaster("UNKNOWN"))
}

func TestAnyMasterPublishes(t *testing.T) {
	app := testApplication()
	assert.True(t, app.AnyMasterPublishes())

	app.Components[0].PublishConfig = false
	assert.False(t, app.AnyMasterPublishes())

	// publishConfig on a non-master does not count
	app.Components[1].PublishConfig = true
	assert.False(t, app.AnyMasterPublishes())
}

func TestExportSets(t *testing.T) {
	app := testApplication()

	appSet := app.Components[0].AppExportSet()
	assert.True(t, appSet["QuickLinks-org.apache.slider.jmx"])
	assert.True(t, appSet["QuickLinks-org.apache.slider.monitor"])
	assert.Len(t, appSet, 2)

	compSet := app.Components[1].CompExportSet()
	assert.True(t, compSet["QuickLinks-app.metrics"])

	assert.Nil(t, app.Components[1].AppExportSet())
	assert.Nil(t, app.ExportedConfigSet())

	app.ExportedConfigs = "hbase-site"
	assert.True(t, app.ExportedConfigSet()["hbase-site"])
}

func TestSplitOrderRef(t *testing.T) {
	component, token, err := SplitOrderRef("HBASE_REGIONSERVER-START")
	require.NoError(t, err)
	assert.Equal(t, "HBASE_REGIONSERVER", component)
	assert.Equal(t, "START", token)

	// component names may contain dashes; split happens on the last one
	component, token, err = SplitOrderRef("my-role-STARTED")
	require.NoError(t, err)
	assert.Equal(t, "my-role", component)
	assert.Equal(t, "STARTED", token)

	_, _, err = SplitOrderRef("NO_SEPARATOR")
	assert.Error(t, err)
	_, _, err = SplitOrderRef("TRAILING-")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	doc := []byte(`
name: memcached
components:
  - name: MEMCACHED
    category: MASTER
    commandScript:
      script: scripts/memcached.py
      timeout: 300
exportGroups:
  - name: Servers
    exports:
      - name: host_port
        value: ${MEMCACHED_HOST}:${site.server_port}
`)
	app, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "memcached", app.Name)
	require.Len(t, app.Components, 1)
	assert.Equal(t, CategoryMaster, app.Components[0].Category)
	assert.Equal(t, int64(300), app.Components[0].CommandScript.TimeoutSeconds)
	require.Len(t, app.ExportGroups, 1)

	_, err = Parse([]byte(`name: broken`))
	assert.Error(t, err)
}

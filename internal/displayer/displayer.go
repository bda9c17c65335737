package displayer

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"cardiag/internal/models"
	"cardiag/internal/obd"
)

const (
	sensorInterval = 2 * time.Second
	dtcInterval    = 30 * time.Second
)

// Displayer renders the live dashboard and the trouble-code table for one
// connector. Sensor rows come from the connector's monitor worker; DTC
// scans run on a slower ticker since each one is three mode requests.
type Displayer struct {
	app  *tview.Application
	tabs *tview.Pages
	conn *obd.Connector

	mu       sync.Mutex
	readings []models.SensorReading

	statusText  *tview.TextView
	helpText    *tview.TextView
	sensorTable *tview.Table
	dtcTable    *tview.Table

	stopCh chan struct{}
}

func New(conn *obd.Connector) *Displayer {
	return &Displayer{
		app:    tview.NewApplication(),
		tabs:   tview.NewPages(),
		conn:   conn,
		stopCh: make(chan struct{}),
	}
}

func (d *Displayer) Run() error {
	// header area: title, status, help
	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("cardiag - OBD2 diagnostics")
	d.statusText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
	d.helpText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("[1 - Dashboard] [2 - DTC] [q - Quit]")

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	headerFlex.AddItem(title, 1, 0, false)
	headerFlex.AddItem(d.statusText, 1, 0, false)
	headerFlex.AddItem(d.helpText, 1, 0, false)

	d.sensorTable = newTable("Sensor", "Value", "Unit")
	d.dtcTable = newTable("Code", "Kind", "Description")
	d.tabs.AddPage("dashboard", d.sensorTable, true, true)
	d.tabs.AddPage("dtc", d.dtcTable, true, false)

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	mainFlex.AddItem(headerFlex, 3, 0, false)
	mainFlex.AddItem(d.tabs, 0, 1, true)

	d.app.SetRoot(mainFlex, true)
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			d.Shutdown()
			return nil
		case '1':
			d.tabs.SwitchToPage("dashboard")
			return nil
		case '2':
			d.tabs.SwitchToPage("dtc")
			return nil
		}
		return event
	})

	d.renderStatus()

	if err := d.conn.StartMonitoring(sensorInterval, obd.DefaultLivePIDs, d.onReadings); err != nil {
		return err
	}
	go d.refreshDTCs()

	err := d.app.Run()
	d.conn.StopMonitoring()
	return err
}

func (d *Displayer) Shutdown() {
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
	d.app.Stop()
}

// onReadings is called from the monitor worker with each poll batch.
func (d *Displayer) onReadings(readings []models.SensorReading) {
	d.mu.Lock()
	d.readings = readings
	d.mu.Unlock()
	d.app.QueueUpdateDraw(d.renderSensors)
}

func (d *Displayer) renderSensors() {
	d.mu.Lock()
	readings := d.readings
	d.mu.Unlock()

	for r := d.sensorTable.GetRowCount() - 1; r >= 1; r-- {
		d.sensorTable.RemoveRow(r)
	}
	for i, r := range readings {
		value := fmt.Sprintf("%.1f", r.Value)
		if r.Unit == "hex" {
			value = r.Raw
		}
		d.sensorTable.SetCell(i+1, 0, tview.NewTableCell(r.Name))
		d.sensorTable.SetCell(i+1, 1, tview.NewTableCell(value).SetAlign(tview.AlignRight))
		d.sensorTable.SetCell(i+1, 2, tview.NewTableCell(r.Unit))
	}
	d.renderStatus()
}

func (d *Displayer) renderStatus() {
	st := d.conn.Status()
	status := "[red]disconnected[white]"
	if st.Connected {
		status = fmt.Sprintf("[green]connected[white] (%s)", st.Protocol)
	}
	d.statusText.SetText(fmt.Sprintf("Status: %s", status))
}

// refreshDTCs scans trouble codes at startup and then on a slow ticker.
func (d *Displayer) refreshDTCs() {
	d.updateDTCs()
	ticker := time.NewTicker(dtcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.updateDTCs()
		}
	}
}

func (d *Displayer) updateDTCs() {
	codes := d.conn.ScanForDTCs()
	d.app.QueueUpdateDraw(func() {
		for r := d.dtcTable.GetRowCount() - 1; r >= 1; r-- {
			d.dtcTable.RemoveRow(r)
		}
		for i, tc := range codes {
			d.dtcTable.SetCell(i+1, 0, tview.NewTableCell(tc.Code))
			d.dtcTable.SetCell(i+1, 1, tview.NewTableCell(string(tc.Kind)))
			d.dtcTable.SetCell(i+1, 2, tview.NewTableCell(tc.Description))
		}
	})
}

func newTable(headers ...string) *tview.Table {
	tbl := tview.NewTable().SetBorders(true)
	for i, h := range headers {
		tbl.SetCell(0, 0+i, tview.NewTableCell(h).SetSelectable(false).SetAlign(tview.AlignCenter))
	}
	return tbl
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/audit"
	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/engine"
	"github.com/xela07ax/ran-copilot/internal/geo"
)

// Вью рабочей области. Одновременно смонтирована только одна.
const (
	CanvasMap       = "map"
	CanvasAnalytics = "analytics"
	CanvasTable     = "table"

	DefaultCanvas = CanvasMap
)

// Имена view-model в метриках, журнале и уведомлениях.
const (
	ViewHeader    = "header"
	ViewCells     = "map.cells"
	ViewAnalytics = "analytics"
	ViewTable     = "table"
)

func HeatmapView(kpi string) string { return "map.heatmap." + kpi }

var (
	ErrUnknownView    = errors.New("dashboard: unknown canvas view")
	ErrViewNotMounted = errors.New("dashboard: view is not mounted")
	ErrUnknownKPI     = errors.New("dashboard: heatmap kpi is not configured")
	ErrNotStarted     = errors.New("dashboard: not started")
)

// Backend - то, что дашборду нужно от REST-бэкенда.
type Backend interface {
	DashboardKPIs(ctx context.Context) (domain.DashboardKPIs, error)
	CellStatus(ctx context.Context) ([]domain.CellStatus, error)
	TimeSeries(ctx context.Context, hours int) ([]domain.TimeSeriesData, error)
	CellPerformance(ctx context.Context, limit int) ([]domain.CellPerformance, error)
	KPIHeatmap(ctx context.Context, kpiName string) (*geojson.FeatureCollection, error)
}

// Publisher получает каждый новый снимок вью (WebSocket-хаб).
type Publisher interface {
	Publish(view string, snapshot any)
}

type DashboardOptions struct {
	HeaderInterval time.Duration
	MapInterval    time.Duration
	AnalyticsHours int
	TableLimit     int
	HeatmapKPIs    []string

	Notifier  engine.Notifier
	Publisher Publisher
	Metrics   *engine.Metrics
	Journal   audit.Auditor
	Logger    *zap.Logger
}

// Dashboard - шапка, которая живет все время, и рабочая область,
// в которой смонтирована одна из вью (карта, аналитика, таблица).
type Dashboard struct {
	backend Backend
	opts    DashboardOptions
	logger  *zap.Logger

	header *engine.ViewModel[domain.DashboardKPIs]

	mu      sync.RWMutex
	rootCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	canvas  *canvas
}

// canvas - смонтированная вью рабочей области и ее view-model.
type canvas struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	cells     *engine.ViewModel[[]domain.CellStatus]
	heatmaps  map[string]*engine.ViewModel[*geojson.FeatureCollection]
	analytics *engine.ViewModel[[]domain.TimeSeriesData]
	table     *engine.ViewModel[[]domain.CellPerformance]
}

func (c *canvas) views() []engine.View {
	var out []engine.View
	if c.cells != nil {
		out = append(out, c.cells)
	}
	for _, h := range c.heatmaps {
		out = append(out, h)
	}
	if c.analytics != nil {
		out = append(out, c.analytics)
	}
	if c.table != nil {
		out = append(out, c.table)
	}
	return out
}

func NewDashboard(backend Backend, opts DashboardOptions) *Dashboard {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Journal == nil {
		opts.Journal = audit.Nop{}
	}
	d := &Dashboard{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger.Named("dashboard"),
	}
	d.header = engine.NewViewModel(engine.Options[domain.DashboardKPIs]{
		Name:     ViewHeader,
		Fetch:    backend.DashboardKPIs,
		Fallback: domain.FallbackKPIs,
		Interval: opts.HeaderInterval,
		Notifier: opts.Notifier,
		Metrics:  opts.Metrics,
		Journal:  opts.Journal,
		Logger:   opts.Logger,
	})
	publish(d.header, opts.Publisher)
	return d
}

// Start монтирует шапку и вью по умолчанию. Все живет до Stop или отмены ctx.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.rootCtx != nil {
		d.mu.Unlock()
		return errors.New("dashboard: already started")
	}
	d.rootCtx, d.stop = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.header.Run(d.rootCtx)
	}()
	d.mu.Unlock()

	_, err := d.SwitchCanvas(DefaultCanvas)
	return err
}

// Stop размонтирует все вью и ждет завершения их циклов.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	if d.stop != nil {
		d.stop()
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("dashboard stopped")
}

// SwitchCanvas размонтирует текущую вью (отменяя ее запросы) и монтирует новую.
// Повторный выбор активной вью ничего не делает.
func (d *Dashboard) SwitchCanvas(name string) (string, error) {
	if !validCanvas(name) {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rootCtx == nil {
		return "", ErrNotStarted
	}
	if d.rootCtx.Err() != nil {
		return "", d.rootCtx.Err()
	}
	if d.canvas != nil && d.canvas.name == name {
		return name, nil
	}

	// 1. Размонтируем старую вью и дожидаемся остановки ее циклов
	if old := d.canvas; old != nil {
		old.cancel()
		<-old.done
		d.logger.Info("canvas view unmounted", zap.String("view", old.name))
	}

	// 2. Собираем свежие view-model: новая вью начинает с loading
	c := d.buildCanvas(name)
	ctx, cancel := context.WithCancel(d.rootCtx)
	c.ctx, c.cancel = ctx, cancel
	c.done = make(chan struct{})
	d.canvas = c

	// 3. Запускаем
	views := c.views()
	var vwg sync.WaitGroup
	vwg.Add(len(views))
	for _, v := range views {
		go func(v engine.View) {
			defer vwg.Done()
			v.Run(ctx)
		}(v)
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		vwg.Wait()
		close(c.done)
	}()

	d.logger.Info("canvas view mounted", zap.String("view", name))
	return name, nil
}

func (d *Dashboard) buildCanvas(name string) *canvas {
	c := &canvas{name: name}
	o := d.opts
	switch name {
	case CanvasMap:
		c.cells = engine.NewViewModel(engine.Options[[]domain.CellStatus]{
			Name:     ViewCells,
			Fetch:    d.backend.CellStatus,
			Fallback: domain.FallbackCells,
			Interval: o.MapInterval,
			Notifier: o.Notifier,
			Metrics:  o.Metrics,
			Journal:  o.Journal,
			Logger:   o.Logger,
		})
		publish(c.cells, o.Publisher)

		c.heatmaps = make(map[string]*engine.ViewModel[*geojson.FeatureCollection], len(o.HeatmapKPIs))
		for _, kpi := range o.HeatmapKPIs {
			kpi := kpi
			vm := engine.NewViewModel(engine.Options[*geojson.FeatureCollection]{
				Name: HeatmapView(kpi),
				Fetch: func(ctx context.Context) (*geojson.FeatureCollection, error) {
					fc, err := d.backend.KPIHeatmap(ctx, kpi)
					if err != nil {
						return nil, err
					}
					return geo.Heatmap(fc), nil
				},
				Fallback: func() *geojson.FeatureCollection {
					return geo.Heatmap(geo.FallbackHeatmap())
				},
				Notifier: o.Notifier,
				Metrics:  o.Metrics,
				Journal:  o.Journal,
				Logger:   o.Logger,
			})
			publish(vm, o.Publisher)
			c.heatmaps[kpi] = vm
		}

	case CanvasAnalytics:
		c.analytics = engine.NewViewModel(engine.Options[[]domain.TimeSeriesData]{
			Name: ViewAnalytics,
			Fetch: func(ctx context.Context) ([]domain.TimeSeriesData, error) {
				return d.backend.TimeSeries(ctx, o.AnalyticsHours)
			},
			Fallback: domain.FallbackTimeSeries,
			Notifier: o.Notifier,
			Metrics:  o.Metrics,
			Journal:  o.Journal,
			Logger:   o.Logger,
		})
		publish(c.analytics, o.Publisher)

	case CanvasTable:
		c.table = engine.NewViewModel(engine.Options[[]domain.CellPerformance]{
			Name: ViewTable,
			Fetch: func(ctx context.Context) ([]domain.CellPerformance, error) {
				return d.backend.CellPerformance(ctx, o.TableLimit)
			},
			Fallback: domain.FallbackPerformance,
			Notifier: o.Notifier,
			Metrics:  o.Metrics,
			Journal:  o.Journal,
			Logger:   o.Logger,
		})
		publish(c.table, o.Publisher)
	}
	return c
}

// ActiveCanvas - имя смонтированной вью, "" до Start.
func (d *Dashboard) ActiveCanvas() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.canvas == nil {
		return ""
	}
	return d.canvas.name
}

// CanvasSnapshots - снимки всех view-model активной вью по именам.
func (d *Dashboard) CanvasSnapshots() (string, map[string]any) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.canvas == nil {
		return "", nil
	}
	out := make(map[string]any)
	for _, v := range d.canvas.views() {
		out[v.Name()] = v.Current()
	}
	return d.canvas.name, out
}

func (d *Dashboard) Header() engine.Snapshot[domain.DashboardKPIs] {
	return d.header.Snapshot()
}

func (d *Dashboard) Cells() (engine.Snapshot[[]domain.CellStatus], error) {
	c, err := d.mounted(CanvasMap)
	if err != nil {
		return engine.Snapshot[[]domain.CellStatus]{}, err
	}
	return c.cells.Snapshot(), nil
}

func (d *Dashboard) Heatmap(kpi string) (engine.Snapshot[*geojson.FeatureCollection], error) {
	c, err := d.mounted(CanvasMap)
	if err != nil {
		return engine.Snapshot[*geojson.FeatureCollection]{}, err
	}
	vm, ok := c.heatmaps[kpi]
	if !ok {
		return engine.Snapshot[*geojson.FeatureCollection]{}, fmt.Errorf("%w: %q", ErrUnknownKPI, kpi)
	}
	return vm.Snapshot(), nil
}

func (d *Dashboard) Analytics() (engine.Snapshot[[]domain.TimeSeriesData], error) {
	c, err := d.mounted(CanvasAnalytics)
	if err != nil {
		return engine.Snapshot[[]domain.TimeSeriesData]{}, err
	}
	return c.analytics.Snapshot(), nil
}

func (d *Dashboard) Table() (engine.Snapshot[[]domain.CellPerformance], error) {
	c, err := d.mounted(CanvasTable)
	if err != nil {
		return engine.Snapshot[[]domain.CellPerformance]{}, err
	}
	return c.table.Snapshot(), nil
}

// Refresh принудительно перезапрашивает шапку и активную вью.
// Циклы идут в контексте монтирования: обрыв запроса оператора их не прерывает,
// от ctx берется только trace id.
func (d *Dashboard) Refresh(ctx context.Context) {
	traceID := engine.TraceID(ctx)

	d.mu.RLock()
	root, c := d.rootCtx, d.canvas
	d.mu.RUnlock()
	if root == nil {
		return
	}
	d.header.Refresh(engine.WithTraceID(root, traceID))
	if c == nil {
		return
	}
	for _, v := range c.views() {
		// Вью переключили во время обновления: старые view-model больше не трогаем
		if !d.isActive(c) {
			d.logger.Debug("canvas switched during refresh", zap.String("view", c.name))
			return
		}
		v.Refresh(engine.WithTraceID(c.ctx, traceID))
	}
}

func (d *Dashboard) isActive(c *canvas) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.canvas == c && c.ctx.Err() == nil
}

func (d *Dashboard) mounted(name string) (*canvas, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.canvas == nil || d.canvas.name != name {
		return nil, fmt.Errorf("%w: %s", ErrViewNotMounted, name)
	}
	return d.canvas, nil
}

func validCanvas(name string) bool {
	switch name {
	case CanvasMap, CanvasAnalytics, CanvasTable:
		return true
	}
	return false
}

func publish[T any](vm *engine.ViewModel[T], p Publisher) {
	if p == nil {
		return
	}
	vm.Subscribe(func(s engine.Snapshot[T]) {
		p.Publish(s.View, s)
	})
}

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

const storageScopeName = "github.com/sitedesk/punchlist/storage"

// InstrumentedStorage wraps storage.Storage with OTel tracing and
// metrics. Every method gets a span and is counted in punch.storage.*
// metrics. Use WrapStorage to create one; it returns the original store
// unchanged when telemetry is disabled.
type InstrumentedStorage struct {
	inner  storage.Storage
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStorage returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStorage(s storage.Storage) storage.Storage {
	if !Enabled() {
		return s
	}
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("punch.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("punch.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("punch.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStorage{
		inner:  s,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named storage operation.
func (s *InstrumentedStorage) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedStorage) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// Users

func (s *InstrumentedStorage) CreateUser(ctx context.Context, user *types.User) error {
	ctx, span, t := s.op(ctx, "CreateUser")
	err := s.inner.CreateUser(ctx, user)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) GetUser(ctx context.Context, id int64) (*types.User, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.user.id", id)}
	ctx, span, t := s.op(ctx, "GetUser", attrs...)
	v, err := s.inner.GetUser(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	ctx, span, t := s.op(ctx, "GetUserByUsername")
	v, err := s.inner.GetUserByUsername(ctx, username)
	s.done(ctx, span, t, err)
	return v, err
}

// Projects

func (s *InstrumentedStorage) CreateProject(ctx context.Context, project *types.Project) error {
	ctx, span, t := s.op(ctx, "CreateProject")
	err := s.inner.CreateProject(ctx, project)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.project.id", id)}
	ctx, span, t := s.op(ctx, "GetProject", attrs...)
	v, err := s.inner.GetProject(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListProjects(ctx context.Context) ([]*types.Project, error) {
	ctx, span, t := s.op(ctx, "ListProjects")
	v, err := s.inner.ListProjects(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) DeleteProject(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{attribute.Int64("punch.project.id", id)}
	ctx, span, t := s.op(ctx, "DeleteProject", attrs...)
	err := s.inner.DeleteProject(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) ProjectMetrics(ctx context.Context, projectID int64) (*types.ProjectMetrics, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.project.id", projectID)}
	ctx, span, t := s.op(ctx, "ProjectMetrics", attrs...)
	v, err := s.inner.ProjectMetrics(ctx, projectID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// Role grants

func (s *InstrumentedStorage) GrantRole(ctx context.Context, grant *types.RoleGrant) error {
	attrs := []attribute.KeyValue{attribute.String("punch.role", string(grant.Role))}
	ctx, span, t := s.op(ctx, "GrantRole", attrs...)
	err := s.inner.GrantRole(ctx, grant)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) RevokeRole(ctx context.Context, userID, projectID int64, role types.Role) error {
	attrs := []attribute.KeyValue{attribute.String("punch.role", string(role))}
	ctx, span, t := s.op(ctx, "RevokeRole", attrs...)
	err := s.inner.RevokeRole(ctx, userID, projectID, role)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) GetRoles(ctx context.Context, userID, projectID int64) (types.RoleSet, error) {
	ctx, span, t := s.op(ctx, "GetRoles")
	v, err := s.inner.GetRoles(ctx, userID, projectID)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) ListGrants(ctx context.Context, projectID int64) ([]*types.RoleGrant, error) {
	ctx, span, t := s.op(ctx, "ListGrants")
	v, err := s.inner.ListGrants(ctx, projectID)
	s.done(ctx, span, t, err)
	return v, err
}

// Catalogs

func (s *InstrumentedStorage) ListStatuses(ctx context.Context) ([]*types.StatusDef, error) {
	ctx, span, t := s.op(ctx, "ListStatuses")
	v, err := s.inner.ListStatuses(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) GetStatus(ctx context.Context, id int64) (*types.StatusDef, error) {
	ctx, span, t := s.op(ctx, "GetStatus")
	v, err := s.inner.GetStatus(ctx, id)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) GetStatusByName(ctx context.Context, name types.StatusName) (*types.StatusDef, error) {
	ctx, span, t := s.op(ctx, "GetStatusByName")
	v, err := s.inner.GetStatusByName(ctx, name)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) InitialStatus(ctx context.Context) (*types.StatusDef, error) {
	ctx, span, t := s.op(ctx, "InitialStatus")
	v, err := s.inner.InitialStatus(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) ListPriorities(ctx context.Context) ([]*types.Priority, error) {
	ctx, span, t := s.op(ctx, "ListPriorities")
	v, err := s.inner.ListPriorities(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) GetPriority(ctx context.Context, id int64) (*types.Priority, error) {
	ctx, span, t := s.op(ctx, "GetPriority")
	v, err := s.inner.GetPriority(ctx, id)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) GetPriorityByName(ctx context.Context, name string) (*types.Priority, error) {
	ctx, span, t := s.op(ctx, "GetPriorityByName")
	v, err := s.inner.GetPriorityByName(ctx, name)
	s.done(ctx, span, t, err)
	return v, err
}

// Defects

func (s *InstrumentedStorage) GetDefect(ctx context.Context, id int64) (*types.Defect, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.defect.id", id)}
	ctx, span, t := s.op(ctx, "GetDefect", attrs...)
	v, err := s.inner.GetDefect(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) GetDefectByNumber(ctx context.Context, number string) (*types.Defect, error) {
	attrs := []attribute.KeyValue{attribute.String("punch.defect.number", number)}
	ctx, span, t := s.op(ctx, "GetDefectByNumber", attrs...)
	v, err := s.inner.GetDefectByNumber(ctx, number)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) SearchDefects(ctx context.Context, filter types.DefectFilter) ([]*types.Defect, error) {
	ctx, span, t := s.op(ctx, "SearchDefects")
	v, err := s.inner.SearchDefects(ctx, filter)
	s.done(ctx, span, t, err)
	return v, err
}

// Comments

func (s *InstrumentedStorage) GetComment(ctx context.Context, id int64) (*types.Comment, error) {
	ctx, span, t := s.op(ctx, "GetComment")
	v, err := s.inner.GetComment(ctx, id)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) GetDefectComments(ctx context.Context, defectID int64) ([]*types.Comment, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.defect.id", defectID)}
	ctx, span, t := s.op(ctx, "GetDefectComments", attrs...)
	v, err := s.inner.GetDefectComments(ctx, defectID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// Audit

func (s *InstrumentedStorage) GetAuditEntries(ctx context.Context, defectID int64, limit int) ([]*types.AuditEntry, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.defect.id", defectID)}
	ctx, span, t := s.op(ctx, "GetAuditEntries", attrs...)
	v, err := s.inner.GetAuditEntries(ctx, defectID, limit)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) SearchAudit(ctx context.Context, projectID int64, filterText string, limit int) ([]*types.AuditEntry, error) {
	attrs := []attribute.KeyValue{attribute.Int64("punch.project.id", projectID)}
	ctx, span, t := s.op(ctx, "SearchAudit", attrs...)
	v, err := s.inner.SearchAudit(ctx, projectID, filterText, limit)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// Transactions

func (s *InstrumentedStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	ctx, span, t := s.op(ctx, "RunInTransaction")
	err := s.inner.RunInTransaction(ctx, fn)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}

// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package southbound

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

const (
	notificationQueueSize = 1024
	keepAliveQueueSize    = 4
	serverStateRunning    = 0
)

// DialerConfig configures sessions opened by the gopcua dialer
type DialerConfig struct {
	Endpoint        string
	KeepAlivePeriod time.Duration
	RequestTimeout  time.Duration
}

// NewDialer returns a Dialer opening anonymous sessions without message security
func NewDialer(cfg DialerConfig, log logging.Logger) Dialer {
	return &dialer{
		cfg: cfg,
		log: log,
	}
}

type dialer struct {
	cfg DialerConfig
	log logging.Logger
}

func (d *dialer) Dial(ctx context.Context) (Session, error) {
	endpoints, err := opcua.GetEndpoints(ctx, d.cfg.Endpoint)
	if err != nil {
		return nil, errors.NewUnavailable("get endpoints of %s: %v", d.cfg.Endpoint, err)
	}
	var endpoint *ua.EndpointDescription
	for _, ep := range endpoints {
		if ep.SecurityMode == ua.MessageSecurityModeNone && ep.SecurityPolicyURI == ua.SecurityPolicyURINone {
			endpoint = ep
			break
		}
	}
	if endpoint == nil {
		return nil, errors.NewInvalid("server %s offers no endpoint without security", d.cfg.Endpoint)
	}
	d.log.Infof("Selected endpoint %s", endpoint.EndpointURL)

	opts := []opcua.Option{
		opcua.SecurityFromEndpoint(endpoint, ua.UserTokenTypeAnonymous),
		opcua.AuthAnonymous(),
		opcua.AutoReconnect(false),
	}
	if d.cfg.RequestTimeout > 0 {
		opts = append(opts, opcua.RequestTimeout(d.cfg.RequestTimeout))
	}
	client, err := opcua.NewClient(d.cfg.Endpoint, opts...)
	if err != nil {
		return nil, errors.NewInvalid("client for %s: %v", d.cfg.Endpoint, err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, errors.NewUnavailable("connect to %s: %v", d.cfg.Endpoint, err)
	}

	keepAliveCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		client:    client,
		log:       d.log,
		keepAlive: make(chan KeepAlive, keepAliveQueueSize),
		cancel:    cancel,
	}
	s.wg.Add(1)
	go s.pollServerState(keepAliveCtx, d.cfg.KeepAlivePeriod)
	return s, nil
}

type session struct {
	client    *opcua.Client
	log       logging.Logger
	keepAlive chan KeepAlive
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// pollServerState reads the server state variable to report session health
func (s *session) pollServerState(ctx context.Context, period time.Duration) {
	defer s.wg.Done()
	if period <= 0 {
		period = 5 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	stateNode := ua.NewNumericNodeID(0, id.Server_ServerStatus_State)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status := model.StatusGood
		readCtx, cancel := context.WithTimeout(ctx, period)
		resp, err := s.client.Read(readCtx, &ua.ReadRequest{
			NodesToRead:        []*ua.ReadValueID{{NodeID: stateNode, AttributeID: ua.AttributeIDValue}},
			TimestampsToReturn: ua.TimestampsToReturnNeither,
		})
		cancel()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.log.Debugf("Keep-alive read failed: %v", err)
			status = model.StatusBadCommunicationError
		case len(resp.Results) != 1:
			status = model.StatusBadUnexpectedError
		case resp.Results[0].Status != ua.StatusOK:
			status = model.StatusCode(resp.Results[0].Status)
		case resp.Results[0].Value == nil:
			status = model.StatusBadUnexpectedError
		default:
			if state, ok := resp.Results[0].Value.Value().(int32); ok && state != serverStateRunning {
				status = model.StatusBadServerNotConnected
			}
		}

		select {
		case s.keepAlive <- KeepAlive{Status: status, Time: time.Now()}:
		default:
			s.log.Debug("Keep-alive queue full, report dropped")
		}
	}
}

func (s *session) KeepAlive() <-chan KeepAlive {
	return s.keepAlive
}

func (s *session) Namespaces(ctx context.Context) ([]string, error) {
	return s.client.NamespaceArray(ctx)
}

func (s *session) Browse(ctx context.Context, nodeID string) (BrowseResult, error) {
	node, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return BrowseResult{}, errors.NewInvalid("node id %s: %v", nodeID, err)
	}
	resp, err := s.client.Browse(ctx, &ua.BrowseRequest{
		View:                          &ua.ViewDescription{ViewID: ua.NewTwoByteNodeID(0)},
		RequestedMaxReferencesPerNode: 0,
		NodesToBrowse: []*ua.BrowseDescription{{
			NodeID:          node,
			BrowseDirection: ua.BrowseDirectionForward,
			ReferenceTypeID: ua.NewNumericNodeID(0, id.HierarchicalReferences),
			IncludeSubtypes: true,
			NodeClassMask:   uint32(ua.NodeClassAll),
			ResultMask:      uint32(ua.BrowseResultMaskAll),
		}},
	})
	if err != nil {
		return BrowseResult{}, err
	}
	if len(resp.Results) != 1 {
		return BrowseResult{}, errors.NewInternal("browse of %s returned %d results", nodeID, len(resp.Results))
	}
	return toBrowseResult(resp.Results[0])
}

func (s *session) BrowseNext(ctx context.Context, continuationPoint []byte) (BrowseResult, error) {
	resp, err := s.client.BrowseNext(ctx, &ua.BrowseNextRequest{
		ContinuationPoints: [][]byte{continuationPoint},
	})
	if err != nil {
		return BrowseResult{}, err
	}
	if len(resp.Results) != 1 {
		return BrowseResult{}, errors.NewInternal("browse next returned %d results", len(resp.Results))
	}
	return toBrowseResult(resp.Results[0])
}

func toBrowseResult(r *ua.BrowseResult) (BrowseResult, error) {
	if r.StatusCode != ua.StatusOK {
		return BrowseResult{}, r.StatusCode
	}
	result := BrowseResult{ContinuationPoint: r.ContinuationPoint}
	for _, ref := range r.References {
		if ref.NodeID == nil || ref.NodeID.NodeID == nil {
			continue
		}
		result.References = append(result.References, toReference(ref))
	}
	return result, nil
}

func toReference(ref *ua.ReferenceDescription) Reference {
	node := ref.NodeID.NodeID
	r := Reference{
		NodeID:    node.String(),
		Namespace: node.Namespace(),
	}
	if ref.BrowseName != nil {
		r.BrowseName = ref.BrowseName.Name
	}
	if ref.DisplayName != nil {
		r.DisplayName = ref.DisplayName.Text
	}
	switch ref.NodeClass {
	case ua.NodeClassObject:
		r.NodeClass = NodeClassObject
	case ua.NodeClassVariable:
		r.NodeClass = NodeClassVariable
	}
	// nodes of other servers cannot be addressed through this session
	if ref.NodeID.ServerIndex != 0 {
		return r
	}
	switch node.Type() {
	case ua.NodeIDTypeTwoByte, ua.NodeIDTypeFourByte, ua.NodeIDTypeNumeric:
		r.IdentifierKind = IdentifierNumeric
		r.Identifier = "i=" + strconv.FormatUint(uint64(node.IntID()), 10)
	case ua.NodeIDTypeString:
		r.IdentifierKind = IdentifierString
		r.Identifier = "s=" + node.StringID()
	}
	return r
}

func (s *session) Read(ctx context.Context, ids []ReadValueID) ([]model.DataValue, error) {
	req := &ua.ReadRequest{
		NodesToRead:        make([]*ua.ReadValueID, 0, len(ids)),
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	}
	for _, rid := range ids {
		node, err := ua.ParseNodeID(rid.NodeID)
		if err != nil {
			return nil, errors.NewInvalid("node id %s: %v", rid.NodeID, err)
		}
		req.NodesToRead = append(req.NodesToRead, &ua.ReadValueID{
			NodeID:      node,
			AttributeID: ua.AttributeID(rid.AttributeID),
		})
	}
	resp, err := s.client.Read(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(ids) {
		return nil, errors.NewInternal("read of %d items returned %d results", len(ids), len(resp.Results))
	}
	values := make([]model.DataValue, len(resp.Results))
	for i, dv := range resp.Results {
		values[i] = s.toDataValue(dv)
	}
	return values, nil
}

func (s *session) Write(ctx context.Context, values []WriteValue) ([]model.StatusCode, error) {
	req := &ua.WriteRequest{NodesToWrite: make([]*ua.WriteValue, 0, len(values))}
	for _, wv := range values {
		node, err := ua.ParseNodeID(wv.NodeID)
		if err != nil {
			return nil, errors.NewInvalid("node id %s: %v", wv.NodeID, err)
		}
		variant, err := ua.NewVariant(wv.Value.Interface())
		if err != nil {
			return nil, errors.NewInvalid("value for %s: %v", wv.NodeID, err)
		}
		req.NodesToWrite = append(req.NodesToWrite, &ua.WriteValue{
			NodeID:      node,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        variant,
			},
		})
	}
	resp, err := s.client.Write(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(values) {
		return nil, errors.NewInternal("write of %d items returned %d results", len(values), len(resp.Results))
	}
	codes := make([]model.StatusCode, len(resp.Results))
	for i, sc := range resp.Results {
		codes[i] = model.StatusCode(sc)
	}
	return codes, nil
}

func (s *session) Subscribe(ctx context.Context, params SubscriptionParams, handler func(ItemNotification)) (Subscription, error) {
	notifyCh := make(chan *opcua.PublishNotificationData, notificationQueueSize)
	sub, err := s.client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: params.PublishingInterval,
	}, notifyCh)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	w := &subscription{
		sub:    sub,
		cancel: cancel,
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-subCtx.Done():
				return
			case data, ok := <-notifyCh:
				if !ok {
					return
				}
				if data == nil {
					continue
				}
				if data.Error != nil {
					s.log.Warnf("Subscription %d error: %v", data.SubscriptionID, data.Error)
					continue
				}
				change, ok := data.Value.(*ua.DataChangeNotification)
				if !ok {
					continue
				}
				for _, item := range change.MonitoredItems {
					handler(ItemNotification{
						Handle: item.ClientHandle,
						Value:  s.toDataValue(item.Value),
					})
				}
			}
		}
	}()
	return w, nil
}

type subscription struct {
	sub    *opcua.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (w *subscription) Monitor(ctx context.Context, items []MonitoredItem) ([]model.StatusCode, error) {
	reqs := make([]*ua.MonitoredItemCreateRequest, 0, len(items))
	for _, item := range items {
		node, err := ua.ParseNodeID(item.NodeID)
		if err != nil {
			return nil, errors.NewInvalid("node id %s: %v", item.NodeID, err)
		}
		reqs = append(reqs, opcua.NewMonitoredItemCreateRequestWithDefaults(node, ua.AttributeIDValue, item.Handle))
	}
	resp, err := w.sub.Monitor(ctx, ua.TimestampsToReturnBoth, reqs...)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(items) {
		return nil, errors.NewInternal("monitor of %d items returned %d results", len(items), len(resp.Results))
	}
	codes := make([]model.StatusCode, len(resp.Results))
	for i, r := range resp.Results {
		codes[i] = model.StatusCode(r.StatusCode)
	}
	return codes, nil
}

func (w *subscription) Cancel(ctx context.Context) error {
	w.cancel()
	w.wg.Wait()
	return w.sub.Cancel(ctx)
}

func (s *session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		err = s.client.Close(ctx)
	})
	return err
}

func (s *session) toDataValue(dv *ua.DataValue) model.DataValue {
	if dv == nil {
		return model.DataValue{StatusCode: model.StatusBadUnexpectedError}
	}
	result := model.DataValue{
		StatusCode:      model.StatusCode(dv.Status),
		SourceTimestamp: dv.SourceTimestamp,
		ServerTimestamp: dv.ServerTimestamp,
	}
	if dv.Value == nil {
		return result
	}
	switch v := dv.Value.Value().(type) {
	case *ua.NodeID:
		result.Value = model.NewString(v.String())
	case *ua.LocalizedText:
		result.Value = model.NewString(v.Text)
	default:
		value, err := model.FromInterface(v)
		if err != nil {
			s.log.Debugf("Unsupported value %T dropped", v)
			break
		}
		result.Value = value
	}
	return result
}

var _ Dialer = &dialer{}
var _ Session = &session{}
var _ Subscription = &subscription{}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package netconf

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/manager"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/store"
)

var defaultCapabilities = []string{
	"urn:ietf:params:netconf:base:1.0",
	"urn:ietf:params:netconf:base:1.1",
	"urn:ietf:params:netconf:capability:writable-running:1.0",
	"urn:ietf:params:netconf:capability:xpath:1.0",
}

// SessionCloser terminates NETCONF sessions
type SessionCloser interface {
	CloseSession(sessionID string) error
}

type handler struct {
	gw       manager.Gateway
	sessions store.Store
	closer   SessionCloser
	log      logging.Logger
}

func newHandler(gw manager.Gateway, sessions store.Store, log logging.Logger) *handler {
	return &handler{
		gw:       gw,
		sessions: sessions,
		log:      log,
	}
}

func (h *handler) capabilities(ctx context.Context) ([]string, error) {
	namespaces, err := h.gw.Namespaces(ctx)
	if err != nil {
		return nil, err
	}
	capabilities := make([]string, 0, len(defaultCapabilities)+len(namespaces)+1)
	capabilities = append(capabilities, defaultCapabilities...)
	capabilities = append(capabilities, VariablesNamespace)
	for _, ns := range namespaces {
		if ns.URI != "" {
			capabilities = append(capabilities, ns.URI)
		}
	}
	return capabilities, nil
}

func (h *handler) Hello(ctx context.Context, sessionID string) ([]byte, error) {
	capabilities, err := h.capabilities(ctx)
	if err != nil {
		return nil, err
	}

	output, err := xml.Marshal(&Hello{
		Capabilities: capabilities,
		SessionID:    sessionID,
	})
	if err != nil {
		return nil, err
	}

	_, err = h.sessions.Put(ctx, store.Key{SessionID: sessionID}, &store.SessionValue{
		Alive:      true,
		Operations: make(map[string]store.Operation),
	})
	if err != nil {
		h.log.Warn(err)
	}
	h.log.Debugf("Built hello of session %s: %s", sessionID, output)
	return output, nil
}

func (h *handler) Closed(ctx context.Context, sessionID string) {
	h.log.Infof("Deleting session %s", sessionID)
	if err := h.sessions.Delete(ctx, store.Key{SessionID: sessionID}); err != nil {
		h.log.Warn(err)
	}
}

func (h *handler) Handle(ctx context.Context, sessionID string, request []byte) ([]byte, bool, error) {
	h.log.Debugf("Session %s received %s", sessionID, request)

	var msg message
	if err := xml.Unmarshal(request, &msg); err != nil {
		return h.marshal(&RPCReply{
			Errors: []RPCError{newRPCError("rpc", "malformed-message", "", err.Error())},
		})
	}

	switch msg.XMLName.Local {
	case "hello":
		hello := new(clientHello)
		if err := xml.Unmarshal(request, hello); err != nil {
			return nil, false, err
		}
		h.log.Infof("Session %s client capabilities %v", sessionID, hello.Capabilities)
		return nil, false, nil
	case "rpc":
	default:
		return h.marshal(&RPCReply{
			Errors: []RPCError{newRPCError("rpc", "malformed-message", "", fmt.Sprintf("unexpected element %s", msg.XMLName.Local))},
		})
	}

	reply := &RPCReply{MessageID: msg.MessageID}
	end := false
	var err error
	name := msg.Operation.XMLName.Local
	switch name {
	case "get":
		get := new(Get)
		if err = xml.Unmarshal(request, get); err == nil {
			reply.Data, err = h.get(ctx, get.Filter)
		}
	case "get-config":
		getConfig := new(GetConfig)
		if err = xml.Unmarshal(request, getConfig); err == nil {
			reply.Data, err = h.get(ctx, getConfig.Filter)
		}
	case "edit-config":
		editConfig := new(EditConfig)
		if err = xml.Unmarshal(request, editConfig); err == nil {
			reply.Errors, err = h.editConfig(ctx, editConfig)
		}
	case "close-session":
		end = true
	case "kill-session":
		killSession := new(KillSession)
		if err = xml.Unmarshal(request, killSession); err == nil {
			err = h.killSession(sessionID, killSession.SessionID)
		}
	default:
		err = errors.NewNotSupported("operation '%s' is not supported", name)
	}

	if err != nil {
		h.log.Warnf("Session %s %s failed: %v", sessionID, name, err)
		reply.Errors = append(reply.Errors, rpcErrorFrom(err))
	}
	if len(reply.Errors) == 0 && reply.Data == nil {
		reply.Ok = &struct{}{}
	}
	h.recordOperation(ctx, sessionID, msg.MessageID, name, len(reply.Errors) == 0)

	output, _, err := h.marshal(reply)
	return output, end, err
}

func (h *handler) marshal(reply *RPCReply) ([]byte, bool, error) {
	output, err := xml.Marshal(reply)
	if err != nil {
		return nil, false, err
	}
	return output, false, nil
}

func (h *handler) recordOperation(ctx context.Context, sessionID, messageID, name string, status bool) {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	err := h.sessions.RecordOperation(ctx, store.Key{SessionID: sessionID}, messageID, store.Operation{
		Name:      name,
		Namespace: VariablesNamespace,
		Status:    status,
		Timestamp: uint64(time.Now().UnixNano()),
	})
	if err != nil {
		h.log.Warn(err)
	}
}

func (h *handler) get(ctx context.Context, filter *Filter) (*Data, error) {
	names, err := selectVariables(filter)
	if err != nil {
		return nil, err
	}

	variables := &Variables{}
	if names == nil {
		values, err := h.gw.Variables(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			variables.Variable = append(variables.Variable, newVariable(v.Name, v.SystemType, v.Value, v.StatusCode, v.Timestamp))
		}
		return &Data{Variables: variables}, nil
	}

	for _, resp := range h.gw.ReadValueFromCache(ctx, names) {
		if resp.StatusCode == model.StatusBadNoEntryExists {
			return nil, errors.NewNotFound("variable %s does not exist", resp.Name)
		}
		variables.Variable = append(variables.Variable, newVariable(resp.Name, resp.SystemType, resp.Value, resp.StatusCode, resp.Timestamp))
	}
	return &Data{Variables: variables}, nil
}

func newVariable(name string, systemType model.SystemType, value model.Value, status model.StatusCode, timestamp time.Time) Variable {
	v := Variable{
		Name:   name,
		Type:   systemType.String(),
		Value:  value.String(),
		Status: status.String(),
	}
	if !timestamp.IsZero() {
		v.Timestamp = timestamp.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func (h *handler) editConfig(ctx context.Context, request *EditConfig) ([]RPCError, error) {
	names, values, err := parseEditConfig(request)
	if err != nil {
		return nil, err
	}

	var failures []RPCError
	for _, resp := range h.gw.WriteToOPCServer(ctx, names, values) {
		if !resp.Success {
			failures = append(failures, newRPCError("application", "operation-failed",
				fmt.Sprintf("/variables/variable[name=%s]", resp.Name), resp.StatusCode.String()))
		}
	}
	return failures, nil
}

func (h *handler) killSession(sessionID, target string) error {
	if target == "" {
		return errors.NewInvalid("kill-session without session-id")
	}
	if target == sessionID {
		return errors.NewInvalid("session %s cannot kill itself", sessionID)
	}
	if h.closer == nil {
		return errors.NewUnavailable("sessions cannot be closed")
	}
	return h.closer.CloseSession(target)
}

func newRPCError(errType, tag, path, message string) RPCError {
	return RPCError{
		Type:     errType,
		Tag:      tag,
		Severity: "error",
		Path:     path,
		Message:  message,
	}
}

func rpcErrorFrom(err error) RPCError {
	switch {
	case errors.IsInvalid(err):
		return newRPCError("application", "invalid-value", "", err.Error())
	case errors.IsNotFound(err):
		return newRPCError("application", "data-missing", "", err.Error())
	case errors.IsNotSupported(err):
		return newRPCError("protocol", "operation-not-supported", "", err.Error())
	default:
		return newRPCError("application", "operation-failed", "", err.Error())
	}
}

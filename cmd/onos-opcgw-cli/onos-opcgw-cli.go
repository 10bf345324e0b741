// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/gnxi/utils/xpath"
	"github.com/onosproject/onos-lib-go/pkg/certs"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	nbgnmi "github.com/onosproject/onos-opcgw/pkg/northbound/gnmi"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

var log = logging.GetLogger("opcgw", "cli")

const usage = `usage: onos-opcgw-cli [flags] <command> [args]

commands:
  capabilities
  get [xpath...]
  set <xpath>=<value>...
  subscribe [xpath...]
`

func main() {
	address := flag.String("address", "localhost:5150", "address of the gateway gNMI service")
	caPath := flag.String("caPath", "", "path to CA certificate")
	keyPath := flag.String("keyPath", "", "path to client private key")
	certPath := flag.String("certPath", "", "path to client certificate")
	timeout := flag.Duration("timeout", 10*time.Second, "timeout of unary requests")
	mode := flag.String("mode", "stream", "subscription mode: once, poll or stream; in poll mode every input line polls")
	updatesOnly := flag.Bool("updatesOnly", false, "skip the initial values of a stream subscription")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	opts, err := certs.HandleCertPaths(*caPath, *keyPath, *certPath, true)
	if err != nil {
		log.Fatal(err)
	}
	client, err := nbgnmi.NewClient(*address, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "capabilities":
		err = capabilities(ctx, client, *timeout)
	case "get":
		err = get(ctx, client, *timeout, args)
	case "set":
		err = set(ctx, client, *timeout, args)
	case "subscribe":
		err = subscribe(ctx, client, *mode, *updatesOnly, args)
	default:
		err = errors.NewInvalid("unknown command %s", command)
	}
	if err != nil {
		stop()
		log.Fatal(err)
	}
}

func capabilities(ctx context.Context, client nbgnmi.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := client.Capabilities(ctx)
	if err != nil {
		return err
	}
	printMessage(resp)
	return nil
}

func get(ctx context.Context, client nbgnmi.Client, timeout time.Duration, args []string) error {
	paths, err := toPaths(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := client.Get(ctx, &gnmi.GetRequest{
		Path:     paths,
		Encoding: gnmi.Encoding_JSON,
	})
	if err != nil {
		return err
	}
	printMessage(resp)
	return nil
}

func set(ctx context.Context, client nbgnmi.Client, timeout time.Duration, args []string) error {
	if len(args) == 0 {
		return errors.NewInvalid("set needs at least one <xpath>=<value>")
	}
	request := &gnmi.SetRequest{}
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i <= 0 {
			return errors.NewInvalid("expected <xpath>=<value>, got %s", arg)
		}
		path, err := xpath.ToGNMIPath(arg[:i])
		if err != nil {
			return errors.NewInvalid("%s: %v", arg[:i], err)
		}
		request.Update = append(request.Update, &gnmi.Update{
			Path: path,
			Val:  toTypedValue(arg[i+1:]),
		})
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := client.Set(ctx, request)
	if err != nil {
		return err
	}
	printMessage(resp)
	return nil
}

func subscribe(ctx context.Context, client nbgnmi.Client, mode string, updatesOnly bool, args []string) error {
	paths, err := toPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = []*gnmi.Path{{}}
	}
	list := &gnmi.SubscriptionList{
		Encoding:    gnmi.Encoding_JSON,
		UpdatesOnly: updatesOnly,
	}
	switch mode {
	case "once":
		list.Mode = gnmi.SubscriptionList_ONCE
	case "poll":
		list.Mode = gnmi.SubscriptionList_POLL
	case "stream":
		list.Mode = gnmi.SubscriptionList_STREAM
	default:
		return errors.NewInvalid("unknown subscription mode %s", mode)
	}
	for _, path := range paths {
		list.Subscription = append(list.Subscription, &gnmi.Subscription{
			Path: path,
			Mode: gnmi.SubscriptionMode_ON_CHANGE,
		})
	}

	stream, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}
	err = stream.Send(&gnmi.SubscribeRequest{
		Request: &gnmi.SubscribeRequest_Subscribe{Subscribe: list},
	})
	if err != nil {
		return err
	}
	if list.Mode == gnmi.SubscriptionList_POLL {
		go poll(stream, os.Stdin)
	}
	for {
		resp, err := stream.Recv()
		if err == io.EOF || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		printMessage(resp)
		if resp.GetSyncResponse() && list.Mode == gnmi.SubscriptionList_ONCE {
			return nil
		}
	}
}

func poll(stream gnmi.GNMI_SubscribeClient, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		err := stream.Send(&gnmi.SubscribeRequest{
			Request: &gnmi.SubscribeRequest_Poll{Poll: &gnmi.Poll{}},
		})
		if err != nil {
			log.Warnf("Poll failed: %v", err)
			return
		}
	}
	_ = stream.CloseSend()
}

func toPaths(args []string) ([]*gnmi.Path, error) {
	var paths []*gnmi.Path
	for _, arg := range args {
		path, err := xpath.ToGNMIPath(arg)
		if err != nil {
			return nil, errors.NewInvalid("%s: %v", arg, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// toTypedValue sends JSON scalars as JSON and everything else as a string
func toTypedValue(text string) *gnmi.TypedValue {
	if json.Valid([]byte(text)) {
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_JsonVal{JsonVal: []byte(text)}}
	}
	return &gnmi.TypedValue{Value: &gnmi.TypedValue_StringVal{StringVal: text}}
}

func printMessage(m proto.Message) {
	fmt.Println(prototext.Format(m))
}

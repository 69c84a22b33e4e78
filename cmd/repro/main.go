// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/gin-gonic/gin"

	"github.com/coldharbor/grpcwire/internal/ping"
)

func main() {
	app := gin.New()
	app.UseH2C = true

	mux := ping.NewMux(ping.Server{})
	app.Any("/internal.ping.v1.PingService/*method", gin.WrapH(mux))

	app.Run(":8080")
}

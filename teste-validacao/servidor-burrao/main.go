package main

import (
	"fmt"
	"net/http"
)

func main() {
	http.HandleFunc("/consulta", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Upstream</h1><p>Requisição chegou até aqui sem ser barrada!</p>")
		fmt.Println("Log: requisição passou pelo gateway e chegou em /consulta")
	})
	fmt.Println("Upstream burrão rodando em http://localhost:9090")
	err := http.ListenAndServe(":9090", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}

// Package lumine provides a Go client for the lumine grounded-answer
// service.
//
// Single-turn question answering:
//
//	client := lumine.New("http://localhost:8080")
//	res, _ := client.Chat(ctx, "what happened at the summit today")
//	fmt.Println(res.Response)
//	for _, doc := range res.Context {
//	    fmt.Println(doc.URI)
//	}
//
// Streaming a conversation:
//
//	stream, _ := client.ChatStream(ctx, []lumine.Message{
//	    {Role: lumine.RoleUser, Content: "what happened at the summit today"},
//	})
//	defer stream.Close()
//	for {
//	    ev, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    if ev.Type == lumine.EventToken {
//	        token, _ := ev.Token()
//	        fmt.Print(token)
//	    }
//	}
package lumine
